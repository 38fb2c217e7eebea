package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/eta-consult/quote-api/internal/catalog"
	"github.com/eta-consult/quote-api/internal/domain"
	"github.com/spf13/cobra"
)

var tariffsCmd = &cobra.Command{
	Use:   "tariffs",
	Short: "Inspect tariff and text documents",
}

var tariffsCheckCmd = &cobra.Command{
	Use:   "check <tariffs.json> [texts.json]",
	Short: "Validate a tariff document and, optionally, a text document",
	Long: `Loads the documents exactly as the API does at startup and reports the
first problem found. Exits non-zero when a document is invalid.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, path := range args {
			// A missing file would silently fall back to the built-in documents
			if _, err := os.Stat(path); err != nil {
				return err
			}
		}

		store, err := catalog.NewTariffStore(args[0], false, log)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		scheme, _ := store.Current().PlusScheme()
		fmt.Fprintf(cmd.OutOrStdout(), "%s: ok, %d tariffs, plus factor %s\n",
			args[0], len(store.Current()), schemeName(scheme))

		if len(args) == 2 {
			texts, err := catalog.NewTextStore(args[1], false, log)
			if err != nil {
				return fmt.Errorf("%s: %w", args[1], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok, %d fragments\n", args[1], len(texts.Current()))
		}
		return nil
	},
}

var tariffsShowCmd = &cobra.Command{
	Use:   "show [tariffs.json]",
	Short: "Print the tariffs in effect (built-in tariffs without a path)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		store, err := catalog.NewTariffStore(path, false, log)
		if err != nil {
			return err
		}

		tariffs := store.Current()
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		for _, key := range tariffs.Keys() {
			fmt.Fprintf(w, "%s\t%s\n", key, tariffs[key].String())
		}
		return w.Flush()
	},
}

func schemeName(s domain.PlusScheme) string {
	switch s {
	case domain.PlusSchemeFlat:
		return "flat"
	case domain.PlusSchemeTiered:
		return "tiered"
	}
	return "unknown"
}

func init() {
	tariffsCmd.AddCommand(tariffsCheckCmd)
	tariffsCmd.AddCommand(tariffsShowCmd)
}
