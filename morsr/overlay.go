package morsr

import (
	"fmt"
	"math"
	"slices"
)

const (
	// NumSlots is the fixed length of every overlay array.
	NumSlots = 248
	// NumRootSlots is the number of root slots, indices [0, NumRootSlots).
	NumRootSlots = 240
	// NumCartanLanes is the number of Cartan lanes, indices [CartanOffset, NumSlots).
	NumCartanLanes = 8
	// CartanOffset is the index of the first Cartan lane.
	CartanOffset = NumRootSlots
)

// Overlay is the 248-slot activation/weight/phase state for one piece of content.
//
// Fields are unexported: outside this package an Overlay is read-only, so a
// canonical Overlay can be shared between goroutines without locking. Every
// transformation in this package works on a Copy and never touches its input.
type Overlay struct {
	present    [NumSlots]bool
	w          [NumSlots]float64
	phi        [NumSlots]float64
	pose       Pose
	hashID     string
	provenance []string
}

// NewOverlay validates the three parallel arrays and builds an Overlay.
// The arrays must have length NumSlots; active slots need a finite weight >= 0
// and a phase in [-π, π].
func NewOverlay(present []bool, w, phi []float64, pose Pose) (*Overlay, error) {
	if len(present) != NumSlots || len(w) != NumSlots || len(phi) != NumSlots {
		return nil, fmt.Errorf("array lengths present=%d w=%d phi=%d, want %d: %w",
			len(present), len(w), len(phi), NumSlots, ErrMalformedOverlay)
	}
	o := &Overlay{pose: pose.Clone()}
	copy(o.present[:], present)
	copy(o.w[:], w)
	copy(o.phi[:], phi)
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

// emptyOverlay returns an overlay with no active slots.
func emptyOverlay(pose Pose) *Overlay {
	return &Overlay{pose: pose}
}

// Validate checks the value-range invariants. Inactive slots may hold any
// finite leftovers; non-finite values are rejected in every slot so that the
// overlay always encodes.
func (o *Overlay) Validate() error {
	cartan := 0
	for i := 0; i < NumSlots; i++ {
		if !o.present[i] {
			if !isFinite(o.w[i]) || !isFinite(o.phi[i]) {
				return fmt.Errorf("inactive slot %d holds w=%v phi=%v: %w", i, o.w[i], o.phi[i], ErrMalformedOverlay)
			}
			continue
		}
		if w := o.w[i]; math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return fmt.Errorf("slot %d weight %v: %w", i, w, ErrMalformedOverlay)
		}
		if p := o.phi[i]; math.IsNaN(p) || p < -math.Pi || p > math.Pi {
			return fmt.Errorf("slot %d phase %v outside [-π, π]: %w", i, p, ErrMalformedOverlay)
		}
		if i >= CartanOffset {
			cartan++
		}
	}
	if cartan > NumCartanLanes {
		return fmt.Errorf("%d active cartan lanes: %w", cartan, ErrMalformedOverlay)
	}
	if e := o.pose.ProjectionError; e != nil && !isFinite(*e) {
		return fmt.Errorf("pose projection error %v: %w", *e, ErrMalformedOverlay)
	}
	for i, f := range o.pose.Features {
		if !isFinite(f) {
			return fmt.Errorf("pose feature %d is %v: %w", i, f, ErrMalformedOverlay)
		}
	}
	return nil
}

func isFinite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }

// Copy returns a fully independent duplicate. The hash is kept: a copy of a
// canonical overlay is still canonical until something mutates it.
func (o *Overlay) Copy() *Overlay {
	c := &Overlay{
		present: o.present,
		w:       o.w,
		phi:     o.phi,
		pose:    o.pose.Clone(),
		hashID:  o.hashID,
	}
	if o.provenance != nil {
		c.provenance = slices.Clone(o.provenance)
	}
	return c
}

// draft returns a copy ready for mutation: the hash is dropped.
func (o *Overlay) draft() *Overlay {
	c := o.Copy()
	c.hashID = ""
	return c
}

func (o *Overlay) activate(i int, w, phi float64) {
	o.present[i] = true
	o.w[i] = w
	o.phi[i] = phi
}

func (o *Overlay) addProvenance(tag string) {
	o.provenance = append(o.provenance, tag)
}

// IsActive reports whether slot i is present. Out-of-range indices are inactive.
func (o *Overlay) IsActive(i int) bool {
	return i >= 0 && i < NumSlots && o.present[i]
}

// Weight returns the weight at slot i.
func (o *Overlay) Weight(i int) float64 { return o.w[i] }

// Phase returns the phase at slot i.
func (o *Overlay) Phase(i int) float64 { return o.phi[i] }

// PresentMask returns a copy of the activation mask.
func (o *Overlay) PresentMask() []bool { return slices.Clone(o.present[:]) }

// Weights returns a copy of the weight array.
func (o *Overlay) Weights() []float64 { return slices.Clone(o.w[:]) }

// Phases returns a copy of the phase array.
func (o *Overlay) Phases() []float64 { return slices.Clone(o.phi[:]) }

// Pose returns a copy of the metadata.
func (o *Overlay) Pose() Pose { return o.pose.Clone() }

// Provenance returns a copy of the ordered transformation tags.
func (o *Overlay) Provenance() []string { return slices.Clone(o.provenance) }

// HashID returns the content hash, or "" if the overlay is not canonical.
func (o *Overlay) HashID() string { return o.hashID }

// IsCanonical reports whether a hash has been assigned.
func (o *Overlay) IsCanonical() bool { return o.hashID != "" }

// ActiveSlots returns the indices of active slots in ascending order.
func (o *Overlay) ActiveSlots() []int {
	out := make([]int, 0, 16)
	for i, p := range o.present {
		if p {
			out = append(out, i)
		}
	}
	return out
}

// ActiveCount returns the number of active slots.
func (o *Overlay) ActiveCount() int {
	n := 0
	for _, p := range o.present {
		if p {
			n++
		}
	}
	return n
}

// CartanActive counts active slots in [CartanOffset, NumSlots).
func (o *Overlay) CartanActive() int {
	n := 0
	for i := CartanOffset; i < NumSlots; i++ {
		if o.present[i] {
			n++
		}
	}
	return n
}

// RootActive counts active slots in [0, NumRootSlots).
func (o *Overlay) RootActive() int {
	n := 0
	for i := 0; i < NumRootSlots; i++ {
		if o.present[i] {
			n++
		}
	}
	return n
}

// Sparsity is the fraction of active slots.
func (o *Overlay) Sparsity() float64 {
	return float64(o.ActiveCount()) / NumSlots
}

// wrapPhase maps x into [-π, π].
func wrapPhase(x float64) float64 {
	return math.Remainder(x, 2*math.Pi)
}
