package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/overlay-engine/lattice"
	"github.com/inference-sim/overlay-engine/morsr"
)

var (
	// CLI flags for apply
	applyOp     string  // Operator name
	applyTheta  float64 // Rotation angle
	applyRoot   int     // Reflection root index
	applyTarget int     // single_insert slot
	applyWeight float64 // single_insert weight
)

// applyCmd applies one operator to an overlay read from a file
var applyCmd = &cobra.Command{
	Use:   "apply <overlay.json|->",
	Short: "Apply a named operator to an overlay and print the canonical result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		op, err := operatorFromFlags(applyOp, applyTheta, applyRoot, applyTarget, applyWeight)
		if err != nil {
			return err
		}
		in, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}
		return runApply(cmd.OutOrStdout(), cfg, in, op)
	},
}

// operatorFromFlags builds the operator with explicit parameters where the kind takes any.
func operatorFromFlags(name string, theta float64, root, target int, weight float64) (morsr.Operator, error) {
	if !morsr.IsValidOperatorName(name) {
		return morsr.Operator{}, fmt.Errorf("operator %q: %w (valid: %v)", name, morsr.ErrUnknownOperator, morsr.OperatorNames())
	}
	switch name {
	case "rotation":
		return morsr.NewRotation(theta), nil
	case "reflection":
		return morsr.NewReflection(root)
	case "single_insert":
		return morsr.NewSingleInsertAt(target, weight)
	default:
		return morsr.OperatorByName(name)
	}
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading overlay: %w", err)
	}
	return data, nil
}

func runApply(out io.Writer, cfg *morsr.Config, data []byte, op morsr.Operator) error {
	o, err := morsr.DecodeOverlay(data)
	if err != nil {
		return err
	}
	phi := morsr.NewPhiComputer(cfg.Phi)
	canon := morsr.NewCanonicalizer(lattice.E8())
	before := canon.Canonicalize(o)
	after := canon.Canonicalize(op.Apply(before))
	if err := after.Validate(); err != nil {
		return fmt.Errorf("operator %s: %w", op.Name(), err)
	}
	accepted, reason := morsr.NewAcceptanceChecker(cfg.Acceptance.Tolerance).Check(phi.Phi(before), phi.Phi(after))
	logrus.Infof("%s: Φ %.6f -> %.6f (%s, accepted=%t)", op.Name(), phi.Phi(before), phi.Phi(after), reason, accepted)
	return writeJSON(out, after)
}
