package morsr

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// PhiWeights are the coefficients of the Φ objective.
type PhiWeights struct {
	Alpha float64 `yaml:"alpha"` // geometry smoothness
	Beta  float64 `yaml:"beta"`  // cartan parity count
	Gamma float64 `yaml:"gamma"` // L1 weight mass
	Delta float64 `yaml:"delta"` // kissing-number deviation
}

// DefaultPhiWeights returns α=1.0, β=5.0, γ=0.5, δ=0.1.
func DefaultPhiWeights() PhiWeights {
	return PhiWeights{Alpha: 1.0, Beta: 5.0, Gamma: 0.5, Delta: 0.1}
}

// PhiComponents are the four unweighted terms of Φ.
type PhiComponents struct {
	Geom     float64 `json:"geom"`
	Parity   float64 `json:"parity"`
	Sparsity float64 `json:"sparsity"`
	Kissing  float64 `json:"kissing"`
}

// PhiComputer scores overlays. Lower Φ is better.
type PhiComputer struct {
	weights PhiWeights
}

// NewPhiComputer creates a PhiComputer with the given weights.
func NewPhiComputer(w PhiWeights) *PhiComputer {
	return &PhiComputer{weights: w}
}

// Weights returns the configured coefficients.
func (pc *PhiComputer) Weights() PhiWeights { return pc.weights }

// Components computes the four Φ terms:
//   - Geom: population variance of the second difference of active phases
//     (needs 3 active slots) plus population variance of active weights (needs 2).
//   - Parity: number of active Cartan lanes. A plain count, not a mod-2 bit.
//   - Sparsity: sum of active weights.
//   - Kissing: |active/240 - 1|.
//
// An overlay with no active slots scores zero on every term.
func (pc *PhiComputer) Components(o *Overlay) PhiComponents {
	active := o.ActiveSlots()
	if len(active) == 0 {
		return PhiComponents{}
	}

	phases := make([]float64, len(active))
	weights := make([]float64, len(active))
	var mass float64
	for k, i := range active {
		phases[k] = o.phi[i]
		weights[k] = o.w[i]
		mass += o.w[i]
	}

	var geom float64
	if len(phases) >= 3 {
		d2 := make([]float64, len(phases)-2)
		for k := range d2 {
			d2[k] = phases[k+2] - 2*phases[k+1] + phases[k]
		}
		geom += populationVariance(d2)
	}
	if len(weights) >= 2 {
		geom += populationVariance(weights)
	}

	return PhiComponents{
		Geom:     geom,
		Parity:   float64(o.CartanActive()),
		Sparsity: mass,
		Kissing:  math.Abs(float64(len(active))/NumRootSlots - 1),
	}
}

// Total combines components with the configured weights.
func (pc *PhiComputer) Total(c PhiComponents) float64 {
	w := pc.weights
	return w.Alpha*c.Geom + w.Beta*c.Parity + w.Gamma*c.Sparsity + w.Delta*c.Kissing
}

// Phi is Total(Components(o)).
func (pc *PhiComputer) Phi(o *Overlay) float64 {
	return pc.Total(pc.Components(o))
}

func populationVariance(xs []float64) float64 {
	_, v := stat.PopMeanVariance(xs, nil)
	return v
}
