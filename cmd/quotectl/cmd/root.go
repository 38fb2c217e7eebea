// Package cmd provides the quotectl commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/eta-consult/quote-api/internal/config"
	"github.com/eta-consult/quote-api/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	verbose bool
	log     = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "quotectl",
	Short: "Price and submit CECB quotes from the command line",
	Long: `quotectl prices CECB certificates offline, checks tariff documents
and talks to a running quote API.

Examples:
  quotectl price --ground-area 120 --floors 2 --distance 15
  quotectl tariffs check ./config/tariffs.json
  quotectl quote preview --file form.json`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := "warn"
		if verbose {
			level = "debug"
		}
		l, err := logger.NewLogger(
			&config.LoggingConfig{Level: level, Format: "console"},
			&config.AppConfig{Name: "quotectl", Environment: "development"},
		)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		log = l
		return nil
	},
}

// Execute runs the CLI
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(priceCmd)
	rootCmd.AddCommand(tariffsCmd)
	rootCmd.AddCommand(quoteCmd)
}
