package main

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dtk-group/quote-engine/internal/resolve"
	"github.com/dtk-group/quote-engine/internal/sheet"
)

var priceOut string

var priceCmd = &cobra.Command{
	Use:   "price <requests.xlsx>",
	Short: "Resolve and price a quote request spreadsheet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("price"); err != nil {
			return err
		}
		ctx := cmd.Context()

		queries, err := sheet.ReadQueries(args[0])
		if err != nil {
			return err
		}
		if len(queries) == 0 {
			return eris.Errorf("no rows with part numbers in %s", args[0])
		}

		store, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		orch := resolve.New(store, initLookup(), cfg.Match.SimilarityThreshold)
		results := orch.ResolveBatch(ctx, queries, cfg.Batch.MaxConcurrentRows)

		out := priceOut
		if out == "" {
			out = strings.TrimSuffix(args[0], ".xlsx") + "_priced.xlsx"
		}
		if err := sheet.WriteResults(out, results); err != nil {
			return err
		}

		resolved := 0
		for _, r := range results {
			if r.SpareValue != "" {
				resolved++
			}
		}
		zap.L().Info("quote priced",
			zap.String("output", out),
			zap.Int("rows", len(results)),
			zap.Int("matched", resolved))
		return nil
	},
}

func init() {
	priceCmd.Flags().StringVarP(&priceOut, "out", "o", "", "output path (default <input>_priced.xlsx)")
	rootCmd.AddCommand(priceCmd)
}
