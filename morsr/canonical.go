package morsr

import (
	"math"
	"strconv"

	"github.com/inference-sim/overlay-engine/lattice"
)

// PoseChamberKey is the Pose.Extra key recording whether the embedded
// features lie in the dominant Weyl chamber.
const PoseChamberKey = "dominant_chamber"

const chamberTolerance = 1e-9

// Canonicalizer normalizes overlays and assigns their content hash.
type Canonicalizer struct {
	lattice *lattice.Lattice
}

// NewCanonicalizer creates a Canonicalizer. l may be nil, in which case no
// chamber context is recorded.
func NewCanonicalizer(l *lattice.Lattice) *Canonicalizer {
	return &Canonicalizer{lattice: l}
}

// Canonicalize returns a canonical copy of o: phases are gauge-fixed so the
// heaviest active slot has phase 0, phases are rounded to PhaseDecimals and
// weights to WeightDecimals, and the hash is assigned. Canonicalizing a
// canonical overlay reproduces it exactly.
func (c *Canonicalizer) Canonicalize(o *Overlay) *Overlay {
	out := o.draft()

	for i := 0; i < NumSlots; i++ {
		out.w[i] = roundTo(out.w[i], WeightDecimals)
	}

	// Reference slot is chosen on rounded weights; ties go to the lowest index.
	ref := -1
	for i := 0; i < NumSlots; i++ {
		if out.present[i] && (ref < 0 || out.w[i] > out.w[ref]) {
			ref = i
		}
	}
	if ref >= 0 {
		shift := out.phi[ref]
		for i := 0; i < NumSlots; i++ {
			if out.present[i] {
				out.phi[i] = wrapPhase(out.phi[i] - shift)
			}
		}
	}
	for i := 0; i < NumSlots; i++ {
		out.phi[i] = clampPhase(roundTo(out.phi[i], PhaseDecimals))
	}

	if c.lattice != nil && len(out.pose.Features) == lattice.Dim {
		v, _ := lattice.VecFromSlice(out.pose.Features)
		if out.pose.Extra == nil {
			out.pose.Extra = make(map[string]string, 1)
		}
		out.pose.Extra[PoseChamberKey] = strconv.FormatBool(c.lattice.IsInDominantChamber(v, chamberTolerance))
	}

	out.hashID = out.ComputeHash()
	return out
}

// clampPhase keeps rounded phases inside [-π, π]; rounding π to PhaseDecimals
// lands just outside it.
func clampPhase(p float64) float64 {
	return math.Max(-math.Pi, math.Min(math.Pi, p))
}
