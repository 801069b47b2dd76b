package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/octobees/lead-enricher/internal/database"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich <identifier>",
	Short: "Enrich one company by registration number or domain and print the record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		pool, err := database.Connect(connectCtx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		result, err := buildPipeline(cfg, pool).enricher.Run(ctx, args[0])
		if err != nil {
			return eris.Wrapf(err, "enrich %s", args[0])
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	rootCmd.AddCommand(enrichCmd)
}
