// Package cli implements the QuoteFlow command-line interface using
// Cobra. Subcommands run the server or talk to a running instance.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "quoteflow",
	Short: "Asynchronous CRM quotation service",
	Long: `QuoteFlow turns quotation requests into CRM records: partner,
lead, opportunity, and sale order, with automatic salesperson
assignment and WhatsApp notifications.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
