package morsr

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// slotSpec describes one active slot for newTestOverlay.
type slotSpec struct {
	idx int
	w   float64
	phi float64
}

// newTestOverlay builds a valid overlay with the given active slots.
func newTestOverlay(t *testing.T, slots ...slotSpec) *Overlay {
	t.Helper()
	present := make([]bool, NumSlots)
	w := make([]float64, NumSlots)
	phi := make([]float64, NumSlots)
	for _, s := range slots {
		present[s.idx] = true
		w[s.idx] = s.w
		phi[s.idx] = s.phi
	}
	o, err := NewOverlay(present, w, phi, Pose{Domain: "test"})
	require.NoError(t, err)
	return o
}

// angleDiff returns the absolute angular distance between a and b.
func angleDiff(a, b float64) float64 {
	return math.Abs(math.Remainder(a-b, 2*math.Pi))
}

func allOperators(t *testing.T) []Operator {
	t.Helper()
	ops := make([]Operator, 0, len(ValidOperatorNames))
	for _, name := range OperatorNames() {
		op, err := OperatorByName(name)
		require.NoError(t, err)
		ops = append(ops, op)
	}
	return ops
}

// mixedOverlay has root slots and five Cartan lanes with assorted phases.
func mixedOverlay(t *testing.T) *Overlay {
	t.Helper()
	return newTestOverlay(t,
		slotSpec{3, 1.5, 0.4},
		slotSpec{17, 0.75, -2.9},
		slotSpec{200, 2.25, 3.1},
		slotSpec{240, 1.0, 0.2},
		slotSpec{241, 0.5, -1.2},
		slotSpec{243, 0.3, 2.0},
		slotSpec{244, 0.9, -0.7},
		slotSpec{247, 0.1, 1.1},
	)
}
