package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/inference-sim/overlay-engine/morsr"
	"github.com/inference-sim/overlay-engine/morsr/cache"
)

// cacheCmd groups cache inspection subcommands
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the overlay cache backend",
}

// cacheGetCmd looks a hash up through the configured backend
var cacheGetCmd = &cobra.Command{
	Use:   "get <hash_id>",
	Short: "Print the overlay stored under hash_id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return runCacheGet(cmd.Context(), cmd.OutOrStdout(), cfg, args[0])
	},
}

func runCacheGet(ctx context.Context, out io.Writer, cfg *morsr.Config, hash string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(hash) != morsr.HashLength {
		return fmt.Errorf("hash_id %q: want %d hex characters", hash, morsr.HashLength)
	}
	c, err := cache.NewFromConfig(ctx, cfg.Cache, registerer())
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	o, ok := c.Get(ctx, hash)
	if !ok {
		return fmt.Errorf("overlay %s not found", hash)
	}
	return writeJSON(out, o)
}
