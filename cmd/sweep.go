package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/overlay-engine/morsr"
	"github.com/inference-sim/overlay-engine/morsr/handshake"
)

var tracePath string // Optional handshake trace output file

// SweepReport is the JSON printed by the sweep and batch commands.
type SweepReport struct {
	ID         string             `json:"id,omitempty"`
	RunID      string             `json:"run_id"`
	HashID     string             `json:"hash_id"`
	Domain     string             `json:"domain,omitempty"`
	PhiInitial float64            `json:"phi_initial"`
	PhiFinal   float64            `json:"phi_final"`
	Iterations int                `json:"iterations"`
	Converged  bool               `json:"converged"`
	Summary    *handshake.Summary `json:"summary"`
	Error      string             `json:"error,omitempty"`
}

func newSweepReport(id string, res *morsr.Result) SweepReport {
	return SweepReport{
		ID:         id,
		RunID:      res.RunID,
		HashID:     res.Final.HashID(),
		Domain:     res.Final.Pose().Domain,
		PhiInitial: res.PhiInitial,
		PhiFinal:   res.PhiFinal,
		Iterations: res.Iterations,
		Converged:  res.Converged,
		Summary:    res.Summary,
	}
}

// sweepCmd runs embed -> canonicalize -> pulse sweep -> cache for one vector
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run a pulse sweep on a feature vector and print its summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return runSweep(cmd.Context(), cmd.OutOrStdout(), cfg, features, domain, tracePath)
	},
}

func runSweep(ctx context.Context, out io.Writer, cfg *morsr.Config, features []float64, domain, tracePath string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	engine, store, err := openEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	res, err := engine.Process(ctx, features, domain)
	if err != nil {
		return err
	}
	logrus.Infof("sweep %s: Φ %.6f -> %.6f in %d iteration(s), overlay %s",
		res.RunID, res.PhiInitial, res.PhiFinal, res.Iterations, res.Final.HashID())

	if tracePath != "" {
		if err := writeTrace(tracePath, res.Trials); err != nil {
			return err
		}
	}
	return writeJSON(out, newSweepReport("", res))
}

func writeTrace(path string, records []handshake.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating trace file: %w", err)
	}
	if err := writeJSON(f, records); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
