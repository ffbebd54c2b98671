package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/inference-sim/overlay-engine/lattice"
	"github.com/inference-sim/overlay-engine/morsr"
)

// embedCmd maps a feature vector to its canonical overlay
var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Embed a feature vector and print the canonical overlay as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return runEmbed(cmd.OutOrStdout(), cfg, features, domain)
	},
}

func runEmbed(out io.Writer, cfg *morsr.Config, features []float64, domain string) error {
	l := lattice.E8()
	o, err := morsr.NewEmbedder(l, cfg.Embedder.Epsilon).Embed(features, domain)
	if err != nil {
		return err
	}
	return writeJSON(out, morsr.NewCanonicalizer(l).Canonicalize(o))
}
