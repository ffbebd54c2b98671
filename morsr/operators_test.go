package morsr

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperators_PreserveInvariants(t *testing.T) {
	// GIVEN a mix of overlays, including a full one
	full := newTestOverlay(t)
	for i := 0; i < NumSlots; i++ {
		full.activate(i, 1, math.Pi)
	}
	inputs := []*Overlay{mixedOverlay(t), newTestOverlay(t), full}

	for _, op := range allOperators(t) {
		for i, in := range inputs {
			// WHEN any operator is applied
			out := op.Apply(in)

			// THEN the invariants hold on the result
			assert.NoError(t, out.Validate(), "%s on input %d", op.Name(), i)
			assert.LessOrEqual(t, out.CartanActive(), NumCartanLanes)
			assert.Len(t, out.PresentMask(), NumSlots)
			assert.Len(t, out.Weights(), NumSlots)
			assert.Len(t, out.Phases(), NumSlots)
		}
	}
}

func TestOperators_DoNotMutateInput(t *testing.T) {
	in := NewCanonicalizer(nil).Canonicalize(mixedOverlay(t))
	mask, ws, ps, hash, prov := in.PresentMask(), in.Weights(), in.Phases(), in.HashID(), in.Provenance()
	for _, op := range allOperators(t) {
		out := op.Apply(in)
		assert.Equal(t, mask, in.PresentMask(), op.Name())
		assert.Equal(t, ws, in.Weights(), op.Name())
		assert.Equal(t, ps, in.Phases(), op.Name())
		assert.Equal(t, hash, in.HashID(), op.Name())
		assert.Equal(t, prov, in.Provenance(), op.Name())

		// and the output carries one more provenance tag and no hash
		assert.Len(t, out.Provenance(), len(prov)+1, op.Name())
		assert.False(t, out.IsCanonical(), op.Name())
	}
}

func TestRotation_QuantizesTheta(t *testing.T) {
	assert.InDelta(t, math.Pi/12, NewRotation(0.3).Theta(), 1e-15)
	assert.InDelta(t, math.Pi/6, NewRotation(0.5).Theta(), 1e-15)
	assert.InDelta(t, -math.Pi/4, NewRotation(-0.8).Theta(), 1e-15)
	assert.Equal(t, 0.0, NewRotation(0.1).Theta())
}

func TestRotation_RoundTrip(t *testing.T) {
	// GIVEN an overlay and a rotation
	in := mixedOverlay(t)
	for _, theta := range []float64{math.Pi / 12, 1.3, -2.2, math.Pi} {
		rot := NewRotation(theta)
		inv, ok := rot.Inverse()
		require.True(t, ok)

		// WHEN the rotation and its inverse are applied in turn
		back := inv.Apply(rot.Apply(in))

		// THEN every active phase is restored
		for _, i := range in.ActiveSlots() {
			assert.Less(t, angleDiff(in.Phase(i), back.Phase(i)), 1e-6, "theta=%v slot=%d", theta, i)
		}
	}
}

func TestRotation_WrapsIntoRange(t *testing.T) {
	o := newTestOverlay(t, slotSpec{0, 1, 3.0})
	out := NewRotation(math.Pi / 2).Apply(o)
	assert.InDelta(t, 3.0+math.Pi/2-2*math.Pi, out.Phase(0), 1e-12)
	assert.Equal(t, float64(1), NewRotation(1).Cost(o))
}

func TestReflection_ShiftsByQuarterPi(t *testing.T) {
	op, err := NewReflection(3)
	require.NoError(t, err)
	o := newTestOverlay(t, slotSpec{0, 1, 0.5}, slotSpec{241, 1, 3.0})
	out := op.Apply(o)
	assert.InDelta(t, 0.5+math.Pi/4, out.Phase(0), 1e-12)
	assert.InDelta(t, 3.0+math.Pi/4-2*math.Pi, out.Phase(241), 1e-12)
	assert.Equal(t, "reflection(root=3)", out.Provenance()[0])

	inv, ok := op.Inverse()
	assert.True(t, ok)
	assert.Equal(t, op, inv)
	assert.Equal(t, 2.0, op.Cost(o))
}

func TestReflection_InvalidRoot(t *testing.T) {
	for _, i := range []int{-1, 8} {
		_, err := NewReflection(i)
		assert.ErrorIs(t, err, ErrInvalidIndex)
	}
}

func TestMidpoint_AveragesMirroredLanes(t *testing.T) {
	// GIVEN five active Cartan lanes (sorted: 240, 241, 243, 244, 247)
	in := mixedOverlay(t)

	// WHEN midpoint is applied
	out := NewMidpoint().Apply(in)

	// THEN 240<->247 and 241<->244 are averaged, the middle lane (243) is untouched
	assert.InDelta(t, (0.2+1.1)/2, out.Phase(240), 1e-12)
	assert.InDelta(t, (0.2+1.1)/2, out.Phase(247), 1e-12)
	assert.InDelta(t, (-1.2-0.7)/2, out.Phase(241), 1e-12)
	assert.InDelta(t, (-1.2-0.7)/2, out.Phase(244), 1e-12)
	assert.Equal(t, 2.0, out.Phase(243))
	assert.Equal(t, in.Phase(3), out.Phase(3), "root slots untouched")
	assert.Equal(t, "midpoint(pairs=2)", out.Provenance()[0])
	assert.Equal(t, 5.0, NewMidpoint().Cost(in))

	_, ok := NewMidpoint().Inverse()
	assert.False(t, ok)
}

func TestParityMirror_CopiesLowLanesOntoHighLanes(t *testing.T) {
	in := newTestOverlay(t, slotSpec{240, 0.7, 1.0}, slotSpec{242, 0.4, -0.5})
	out := NewParityMirror().Apply(in)

	assert.True(t, out.IsActive(247))
	assert.Equal(t, 0.7, out.Weight(247))
	assert.Equal(t, -1.0, out.Phase(247))
	assert.True(t, out.IsActive(245))
	assert.Equal(t, 0.4, out.Weight(245))
	assert.Equal(t, 0.5, out.Phase(245))
	assert.False(t, out.IsActive(246))
	assert.False(t, out.IsActive(244))
	assert.Equal(t, 4, out.CartanActive())
	assert.Equal(t, 4.0, NewParityMirror().Cost(in))
}

func TestECCParity_ClearsFirstLaneWhenOdd(t *testing.T) {
	in := newTestOverlay(t, slotSpec{5, 1, 0}, slotSpec{241, 1, 0}, slotSpec{243, 1, 0}, slotSpec{246, 1, 0})
	out := NewECCParity().Apply(in)
	assert.False(t, out.IsActive(241))
	assert.True(t, out.IsActive(243))
	assert.True(t, out.IsActive(246))
	assert.True(t, out.IsActive(5), "root slots untouched")
	assert.Equal(t, 2, out.CartanActive())
	assert.Equal(t, "ecc_parity(cleared=241)", out.Provenance()[0])
}

func TestECCParity_StableOnItsOwnOutput(t *testing.T) {
	// GIVEN an overlay with odd Cartan parity
	once := NewECCParity().Apply(mixedOverlay(t))
	require.Equal(t, 0, once.CartanActive()%2)

	// WHEN applied again
	twice := NewECCParity().Apply(once)

	// THEN nothing further is cleared
	assert.Equal(t, once.PresentMask(), twice.PresentMask())
	assert.Equal(t, "ecc_parity(even)", twice.Provenance()[len(twice.Provenance())-1])
	assert.Equal(t, 8.0, NewECCParity().Cost(once))
}

func TestSingleInsert_AutoPicksFirstFreeLane(t *testing.T) {
	op, err := NewSingleInsert(0.25)
	require.NoError(t, err)
	in := newTestOverlay(t, slotSpec{240, 1, 0.3}, slotSpec{241, 1, 0.3})
	out := op.Apply(in)
	assert.True(t, out.IsActive(242))
	assert.Equal(t, 0.25, out.Weight(242))
	assert.Equal(t, 0.0, out.Phase(242))
	assert.Equal(t, 1.0, op.Cost(in))
}

func TestSingleInsert_FallsBackToRootSlot(t *testing.T) {
	slots := []slotSpec{{0, 1, 0}}
	for i := CartanOffset; i < NumSlots; i++ {
		slots = append(slots, slotSpec{i, 1, 0})
	}
	in := newTestOverlay(t, slots...)
	op, err := NewSingleInsert(0.5)
	require.NoError(t, err)
	out := op.Apply(in)
	assert.True(t, out.IsActive(1))
	assert.Equal(t, in.ActiveCount()+1, out.ActiveCount())
}

func TestSingleInsert_ActiveTarget_OnlyProvenanceChanges(t *testing.T) {
	op, err := NewSingleInsertAt(3, 9)
	require.NoError(t, err)
	in := mixedOverlay(t)
	out := op.Apply(in)
	assert.Equal(t, in.PresentMask(), out.PresentMask())
	assert.Equal(t, in.Weights(), out.Weights())
	assert.Equal(t, "single_insert(noop)", out.Provenance()[0])
}

func TestSingleInsert_Validation(t *testing.T) {
	_, err := NewSingleInsertAt(NumSlots, 1)
	assert.ErrorIs(t, err, ErrInvalidIndex)
	_, err = NewSingleInsertAt(-2, 1)
	assert.ErrorIs(t, err, ErrInvalidIndex)
	_, err = NewSingleInsert(-1)
	assert.ErrorIs(t, err, ErrMalformedOverlay)
	_, err = NewSingleInsert(math.NaN())
	assert.ErrorIs(t, err, ErrMalformedOverlay)
}

func TestOperator_ZeroValueIsIdentityRotation(t *testing.T) {
	// GIVEN the zero Operator, the only one buildable without a constructor
	var op Operator
	in := mixedOverlay(t)

	// WHEN applied
	out := op.Apply(in)

	// THEN it is a rotation by 0 that leaves the arrays alone
	assert.Equal(t, KindRotation, op.Kind())
	assert.Equal(t, in.Phases(), out.Phases())
	assert.Equal(t, in.PresentMask(), out.PresentMask())
}

func TestSingleInsert_OutOfRangeTarget_IsNoop(t *testing.T) {
	// GIVEN an insert whose target bypassed constructor validation
	op := Operator{kind: KindSingleInsert, target: 500, weight: 1}
	in := mixedOverlay(t)

	// WHEN applied, THEN nothing panics and only provenance changes
	var out *Overlay
	require.NotPanics(t, func() { out = op.Apply(in) })
	assert.Equal(t, in.PresentMask(), out.PresentMask())
	assert.Equal(t, "single_insert(noop)", out.Provenance()[len(out.Provenance())-1])
	assert.NoError(t, out.Validate())
}

func TestOperatorByName_Registry(t *testing.T) {
	tests := map[string]OperatorKind{
		"rotation":      KindRotation,
		"reflection":    KindReflection,
		"midpoint":      KindMidpoint,
		"parity":        KindParityMirror,
		"parity_mirror": KindParityMirror,
		"ecc_parity":    KindECCParity,
		"single_insert": KindSingleInsert,
	}
	for name, kind := range tests {
		op, err := OperatorByName(name)
		require.NoError(t, err, name)
		assert.Equal(t, kind, op.Kind(), name)
	}
	assert.Len(t, OperatorNames(), len(tests))
}

func TestOperatorByName_Unknown(t *testing.T) {
	_, err := OperatorByName("weyl")
	assert.ErrorIs(t, err, ErrUnknownOperator)
	_, err = OperatorsByName([]string{"rotation", "nope"})
	assert.ErrorIs(t, err, ErrUnknownOperator)
}

func TestOperatorKind_String(t *testing.T) {
	assert.Equal(t, "ecc_parity", KindECCParity.String())
	assert.Equal(t, "OperatorKind(42)", OperatorKind(42).String())
}
