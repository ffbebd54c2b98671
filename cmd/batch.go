package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/inference-sim/overlay-engine/morsr"
)

var parallelism int // Maximum concurrent sweeps

// BatchFile is the YAML layout read by the batch command.
type BatchFile struct {
	Inputs []morsr.BatchInput `yaml:"inputs"`
}

// batchCmd runs independent sweeps from a YAML file concurrently
var batchCmd = &cobra.Command{
	Use:   "batch <inputs.yaml>",
	Short: "Run pulse sweeps for every feature vector in a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		inputs, err := loadBatchFile(args[0])
		if err != nil {
			return err
		}
		return runBatch(cmd.Context(), cmd.OutOrStdout(), cfg, inputs, parallelism)
	},
}

// loadBatchFile parses the inputs file with strict field checking.
func loadBatchFile(path string) ([]morsr.BatchInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading batch file: %w", err)
	}
	var bf BatchFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&bf); err != nil {
		return nil, fmt.Errorf("parsing batch file: %w", err)
	}
	for i := range bf.Inputs {
		if bf.Inputs[i].ID == "" {
			bf.Inputs[i].ID = fmt.Sprintf("input-%d", i)
		}
	}
	return bf.Inputs, nil
}

func runBatch(ctx context.Context, out io.Writer, cfg *morsr.Config, inputs []morsr.BatchInput, parallelism int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	engine, store, err := openEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	outcomes, err := morsr.RunBatch(ctx, engine, inputs, parallelism)
	if err != nil {
		return err
	}

	reports := make([]SweepReport, len(outcomes))
	failed := 0
	for i, o := range outcomes {
		if o.Err != nil {
			logrus.Errorf("batch: %v", o.Err)
			reports[i] = SweepReport{ID: o.Input.ID, Domain: o.Input.Domain, Error: o.Err.Error()}
			failed++
			continue
		}
		reports[i] = newSweepReport(o.Input.ID, o.Result)
	}
	stats := store.Stats()
	logrus.Infof("batch: %d input(s), %d failed, cache size %d, stores %d", len(inputs), failed, store.Size(), stats.Stores)

	if err := writeJSON(out, reports); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d batch input(s) failed", failed, len(inputs))
	}
	return nil
}
