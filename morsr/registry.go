package morsr

import (
	"fmt"
	"sort"
)

// DefaultInsertWeight is the weight used by the registry's single_insert.
const DefaultInsertWeight = 0.1

// ValidOperatorNames is the set of recognized operator identifiers.
// Shared by Config.Validate() and OperatorByName() to avoid duplication.
var ValidOperatorNames = map[string]bool{
	"rotation":      true,
	"reflection":    true,
	"midpoint":      true,
	"parity":        true,
	"parity_mirror": true,
	"ecc_parity":    true,
	"single_insert": true,
}

// DefaultOperatorSequence is the per-iteration order used by the pulse sweep.
var DefaultOperatorSequence = []string{"rotation", "reflection", "midpoint", "ecc_parity"}

// IsValidOperatorName returns true if name is in the registry.
func IsValidOperatorName(name string) bool {
	return ValidOperatorNames[name]
}

// OperatorNames returns the registry identifiers in sorted order.
func OperatorNames() []string {
	names := make([]string, 0, len(ValidOperatorNames))
	for n := range ValidOperatorNames {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// OperatorByName returns the registry instance for name with default
// parameters: rotation by π/12, reflection on root 0, single_insert with
// DefaultInsertWeight into the first free slot.
func OperatorByName(name string) (Operator, error) {
	if !IsValidOperatorName(name) {
		return Operator{}, fmt.Errorf("%q: %w", name, ErrUnknownOperator)
	}
	switch name {
	case "rotation":
		return NewRotation(RotationQuantum), nil
	case "reflection":
		return NewReflection(0)
	case "midpoint":
		return NewMidpoint(), nil
	case "parity", "parity_mirror":
		return NewParityMirror(), nil
	case "ecc_parity":
		return NewECCParity(), nil
	case "single_insert":
		return NewSingleInsert(DefaultInsertWeight)
	default:
		panic(fmt.Sprintf("unhandled operator %q", name))
	}
}

// OperatorsByName resolves a sequence of names.
func OperatorsByName(names []string) ([]Operator, error) {
	ops := make([]Operator, 0, len(names))
	for _, n := range names {
		op, err := OperatorByName(n)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}
