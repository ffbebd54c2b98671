package morsr

import (
	"fmt"
	"math"

	"github.com/inference-sim/overlay-engine/lattice"
)

// OperatorKind enumerates the closed operator catalogue.
type OperatorKind int

const (
	KindRotation OperatorKind = iota
	KindReflection
	KindMidpoint
	KindParityMirror
	KindECCParity
	KindSingleInsert
)

// String returns the registry name of the kind.
func (k OperatorKind) String() string {
	switch k {
	case KindRotation:
		return "rotation"
	case KindReflection:
		return "reflection"
	case KindMidpoint:
		return "midpoint"
	case KindParityMirror:
		return "parity_mirror"
	case KindECCParity:
		return "ecc_parity"
	case KindSingleInsert:
		return "single_insert"
	default:
		return fmt.Sprintf("OperatorKind(%d)", int(k))
	}
}

const (
	// RotationQuantum is the angular step rotations are snapped to.
	RotationQuantum = math.Pi / 12
	// ReflectionShift is the fixed phase shift applied by Reflection.
	ReflectionShift = math.Pi / 4
	// AutoInsertTarget lets SingleInsert pick its own slot.
	AutoInsertTarget = -1
)

// Operator is one transformation from the catalogue, built by the New*
// constructors or the name registry. The zero value is a rotation by 0.
// Operators are values; Apply never mutates its input.
type Operator struct {
	kind      OperatorKind
	theta     float64 // rotation: quantized angle
	rootIndex int     // reflection: recorded in provenance only
	target    int     // single_insert: slot index or AutoInsertTarget
	weight    float64 // single_insert: weight of the inserted slot
}

// NewRotation returns a rotation by theta snapped to the nearest multiple of π/12.
func NewRotation(theta float64) Operator {
	return Operator{kind: KindRotation, theta: math.Round(theta/RotationQuantum) * RotationQuantum}
}

// NewReflection returns the reflection tagged with a simple-root index in [0, 8).
func NewReflection(rootIndex int) (Operator, error) {
	if rootIndex < 0 || rootIndex >= lattice.Dim {
		return Operator{}, fmt.Errorf("reflection root %d: %w", rootIndex, ErrInvalidIndex)
	}
	return Operator{kind: KindReflection, rootIndex: rootIndex}, nil
}

// NewMidpoint returns the Cartan phase-averaging operator.
func NewMidpoint() Operator { return Operator{kind: KindMidpoint} }

// NewParityMirror returns the lane-mirroring operator.
func NewParityMirror() Operator { return Operator{kind: KindParityMirror} }

// NewECCParity returns the even-parity correction operator.
func NewECCParity() Operator { return Operator{kind: KindECCParity} }

// NewSingleInsert returns an insert that picks the first inactive Cartan lane,
// falling back to the first inactive root slot.
func NewSingleInsert(weight float64) (Operator, error) {
	return NewSingleInsertAt(AutoInsertTarget, weight)
}

// NewSingleInsertAt returns an insert at a fixed slot, or AutoInsertTarget.
func NewSingleInsertAt(target int, weight float64) (Operator, error) {
	if target != AutoInsertTarget && (target < 0 || target >= NumSlots) {
		return Operator{}, fmt.Errorf("insert target %d: %w", target, ErrInvalidIndex)
	}
	if math.IsNaN(weight) || math.IsInf(weight, 0) || weight < 0 {
		return Operator{}, fmt.Errorf("insert weight %v: %w", weight, ErrMalformedOverlay)
	}
	return Operator{kind: KindSingleInsert, target: target, weight: weight}, nil
}

// Name returns the registry name.
func (op Operator) Name() string { return op.kind.String() }

// Kind returns the operator variant.
func (op Operator) Kind() OperatorKind { return op.kind }

// Theta returns the quantized rotation angle.
func (op Operator) Theta() float64 { return op.theta }

// RootIndex returns the simple-root index a reflection is tagged with.
func (op Operator) RootIndex() int { return op.rootIndex }

// Target returns the single_insert slot, or AutoInsertTarget.
func (op Operator) Target() int { return op.target }

// Weight returns the single_insert weight.
func (op Operator) Weight() float64 { return op.weight }

// Apply returns a transformed copy of o with a provenance tag appended.
func (op Operator) Apply(o *Overlay) *Overlay {
	out := o.draft()
	switch op.kind {
	case KindRotation:
		shiftActivePhases(out, op.theta)
		out.addProvenance(fmt.Sprintf("rotation(theta=%.6f)", op.theta))
	case KindReflection:
		shiftActivePhases(out, ReflectionShift)
		out.addProvenance(fmt.Sprintf("reflection(root=%d)", op.rootIndex))
	case KindMidpoint:
		pairs := applyMidpoint(out)
		out.addProvenance(fmt.Sprintf("midpoint(pairs=%d)", pairs))
	case KindParityMirror:
		mirrored := applyParityMirror(out)
		out.addProvenance(fmt.Sprintf("parity_mirror(mirrored=%d)", mirrored))
	case KindECCParity:
		if lane := applyECCParity(out); lane >= 0 {
			out.addProvenance(fmt.Sprintf("ecc_parity(cleared=%d)", lane))
		} else {
			out.addProvenance("ecc_parity(even)")
		}
	case KindSingleInsert:
		if slot := applySingleInsert(out, op.target, op.weight); slot >= 0 {
			out.addProvenance(fmt.Sprintf("single_insert(index=%d,weight=%g)", slot, op.weight))
		} else {
			out.addProvenance("single_insert(noop)")
		}
	default:
		panic(fmt.Sprintf("unhandled operator kind %d", int(op.kind)))
	}
	return out
}

// Inverse returns the operator undoing op, if it has one. Reflection and
// ECCParity are their own inverses.
func (op Operator) Inverse() (Operator, bool) {
	switch op.kind {
	case KindRotation:
		return Operator{kind: KindRotation, theta: -op.theta}, true
	case KindReflection, KindECCParity:
		return op, true
	default:
		return Operator{}, false
	}
}

// Cost is a bookkeeping estimate of the work Apply does on o. It never gates acceptance.
func (op Operator) Cost(o *Overlay) float64 {
	switch op.kind {
	case KindRotation, KindReflection:
		return float64(o.ActiveCount())
	case KindMidpoint:
		return float64(o.CartanActive())
	case KindParityMirror:
		return 4
	case KindECCParity:
		return NumCartanLanes
	case KindSingleInsert:
		return 1
	default:
		return 0
	}
}

func shiftActivePhases(o *Overlay, delta float64) {
	for i := 0; i < NumSlots; i++ {
		if o.present[i] {
			o.phi[i] = wrapPhase(o.phi[i] + delta)
		}
	}
}

// applyMidpoint pairs the i-th and (n-1-i)-th active Cartan lanes and sets
// both phases to their mean. Returns the number of pairs touched.
func applyMidpoint(o *Overlay) int {
	lanes := make([]int, 0, NumCartanLanes)
	for i := CartanOffset; i < NumSlots; i++ {
		if o.present[i] {
			lanes = append(lanes, i)
		}
	}
	n := len(lanes)
	for k := 0; k < n/2; k++ {
		a, b := lanes[k], lanes[n-1-k]
		mid := (o.phi[a] + o.phi[b]) / 2
		o.phi[a], o.phi[b] = mid, mid
	}
	return n / 2
}

// applyParityMirror copies lanes 0..3 onto lanes 7..4 with negated phase.
func applyParityMirror(o *Overlay) int {
	mirrored := 0
	for off := 0; off < 4; off++ {
		src := CartanOffset + off
		if !o.present[src] {
			continue
		}
		o.activate(CartanOffset+(NumCartanLanes-1-off), o.w[src], -o.phi[src])
		mirrored++
	}
	return mirrored
}

// applyECCParity clears the first active Cartan lane when the active count is
// odd. Returns the cleared slot or -1.
func applyECCParity(o *Overlay) int {
	if o.CartanActive()%2 == 0 {
		return -1
	}
	for i := CartanOffset; i < NumSlots; i++ {
		if o.present[i] {
			o.present[i] = false
			return i
		}
	}
	return -1
}

// applySingleInsert activates one slot with phase 0. Returns the slot it
// activated, or -1 if the target was already active, out of range, or nothing
// was free.
func applySingleInsert(o *Overlay, target int, weight float64) int {
	if target != AutoInsertTarget && (target < 0 || target >= NumSlots) {
		return -1
	}
	if target == AutoInsertTarget {
		target = firstInactive(o, CartanOffset, NumSlots)
		if target < 0 {
			target = firstInactive(o, 0, NumRootSlots)
		}
		if target < 0 {
			return -1
		}
	}
	if o.present[target] {
		return -1
	}
	o.activate(target, weight, 0)
	return target
}

func firstInactive(o *Overlay, from, to int) int {
	for i := from; i < to; i++ {
		if !o.present[i] {
			return i
		}
	}
	return -1
}
