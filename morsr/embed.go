package morsr

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"

	"github.com/inference-sim/overlay-engine/lattice"
)

// DefaultEmbedEpsilon is the magnitude below which a feature component leaves
// its Cartan lane inactive.
const DefaultEmbedEpsilon = 1e-9

// Embedder maps an 8-dimensional feature vector into an initial Overlay.
type Embedder struct {
	lattice *lattice.Lattice
	epsilon float64
}

// NewEmbedder creates an Embedder over the shared lattice. A non-positive
// epsilon selects DefaultEmbedEpsilon.
func NewEmbedder(l *lattice.Lattice, epsilon float64) *Embedder {
	if epsilon <= 0 {
		epsilon = DefaultEmbedEpsilon
	}
	return &Embedder{lattice: l, epsilon: epsilon}
}

// Embed projects features onto the lattice, activates one root slot chosen by
// a hash of the feature bytes, and activates the Cartan lane of every
// component whose magnitude exceeds epsilon.
func (e *Embedder) Embed(features []float64, domain string) (*Overlay, error) {
	v, err := lattice.VecFromSlice(features)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidFeatureVector)
	}
	if !v.IsFinite() {
		return nil, fmt.Errorf("non-finite component in %v: %w", features, ErrInvalidFeatureVector)
	}

	snapped, residual := e.lattice.ProjectToLattice(v)
	root := rootSlotFor(v)

	pose := Pose{
		Domain:          domain,
		ProjectionError: &residual,
		RootIndex:       &root,
		Features:        append([]float64(nil), features...),
	}
	o := emptyOverlay(pose)
	o.activate(root, lattice.Norm(snapped), 0)
	for i, x := range v {
		if math.Abs(x) > e.epsilon {
			o.activate(CartanOffset+i, math.Abs(x), 0)
		}
	}
	o.addProvenance(fmt.Sprintf("embed(domain=%s,root=%d)", domain, root))

	if err := o.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

// rootSlotFor picks a root slot from an fnv-1a hash of the little-endian feature bytes.
func rootSlotFor(v lattice.Vec) int {
	h := fnv.New64a()
	var buf [8]byte
	for _, x := range v {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(x))
		h.Write(buf[:])
	}
	return int(h.Sum64() % NumRootSlots)
}
