package morsr

import (
	"errors"

	"github.com/inference-sim/overlay-engine/lattice"
)

var (
	// ErrMalformedOverlay reports a violated overlay invariant. Never repaired silently.
	ErrMalformedOverlay = errors.New("malformed overlay")
	// ErrInvalidIndex reports an out-of-range slot or root index.
	ErrInvalidIndex = lattice.ErrInvalidIndex
	// ErrInvalidFeatureVector reports embedder input of the wrong dimension or with non-finite values.
	ErrInvalidFeatureVector = errors.New("invalid feature vector")
	// ErrUnknownOperator reports a name missing from the operator registry.
	ErrUnknownOperator = errors.New("unknown operator")
)
