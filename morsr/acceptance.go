package morsr

import "math"

// DefaultTolerance is the plateau band of the acceptance rule.
const DefaultTolerance = 1e-6

// Reason explains an acceptance decision.
type Reason string

const (
	ReasonStrictDecrease   Reason = "strict_decrease"
	ReasonPlateau          Reason = "plateau"
	ReasonIncreaseRejected Reason = "increase_rejected"
	// ReasonInvalidOverlay marks a candidate that failed invariant checks.
	ReasonInvalidOverlay Reason = "invalid_overlay"
)

// AcceptanceChecker implements the decrease-or-plateau rule.
type AcceptanceChecker struct {
	Tolerance float64
}

// NewAcceptanceChecker returns a checker; a non-positive tolerance selects DefaultTolerance.
func NewAcceptanceChecker(tolerance float64) AcceptanceChecker {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return AcceptanceChecker{Tolerance: tolerance}
}

// Check compares Φ before and after a step. ΔΦ < -tol is a strict decrease,
// |ΔΦ| <= tol is a plateau, anything else is rejected.
func (ac AcceptanceChecker) Check(phiBefore, phiAfter float64) (bool, Reason) {
	delta := phiAfter - phiBefore
	switch {
	case delta < -ac.Tolerance:
		return true, ReasonStrictDecrease
	case math.Abs(delta) <= ac.Tolerance:
		return true, ReasonPlateau
	default:
		return false, ReasonIncreaseRejected
	}
}

// IsConverged reports |ΔΦ| < tolerance.
func (ac AcceptanceChecker) IsConverged(delta float64) bool {
	return math.Abs(delta) < ac.Tolerance
}
