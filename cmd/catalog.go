package main

import (
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dtk-group/quote-engine/internal/catalog"
	"github.com/dtk-group/quote-engine/internal/sheet"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the reference catalogs",
}

var catalogLoadCmd = &cobra.Command{
	Use:   "load <kind> <file.xlsx>",
	Short: "Replace one reference catalog from a spreadsheet",
	Long:  "Validates the spreadsheet columns against the catalog's declared layout and atomically replaces the table contents. Kinds: " + strings.Join(kindNames(), ", ") + ".",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("catalog"); err != nil {
			return err
		}
		ctx := cmd.Context()

		kind, err := catalog.ParseKind(args[0])
		if err != nil {
			return err
		}
		rows, err := sheet.ReadCatalog(args[1], kind)
		if err != nil {
			return err
		}

		store, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := store.ReplaceCatalog(ctx, kind, rows)
		if err != nil {
			return err
		}
		zap.L().Info("catalog replaced",
			zap.String("kind", kind.String()),
			zap.Int64("rows", n))
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create missing tables and indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("migrate"); err != nil {
			return err
		}
		ctx := cmd.Context()

		store, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Migrate(ctx); err != nil {
			return err
		}
		zap.L().Info("migration complete", zap.String("driver", cfg.Store.Driver))
		return nil
	},
}

func kindNames() []string {
	kinds := catalog.Kinds()
	names := make([]string, 0, len(kinds))
	for _, k := range kinds {
		names = append(names, k.String())
	}
	sort.Strings(names)
	return names
}

func init() {
	catalogCmd.AddCommand(catalogLoadCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(migrateCmd)
}
