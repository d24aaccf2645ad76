package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/servibot/quoteflow/internal/daemon"
	"github.com/servibot/quoteflow/internal/infra/sqlite"
)

func init() {
	auditCmd.Flags().IntVar(&auditLimit, "limit", 20, "Maximum entries to show")
	auditCmd.AddCommand(auditShowCmd)
	rootCmd.AddCommand(auditCmd)
}

var auditLimit int

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the local quotation audit trail",
	RunE:  runAudit,
}

var auditShowCmd = &cobra.Command{
	Use:   "show <tracking-id>",
	Short: "Show a single audit entry including its payloads",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuditShow,
}

func openAuditDB() (*sqlite.DB, error) {
	return sqlite.Open(daemon.Home())
}

func runAudit(cmd *cobra.Command, args []string) error {
	db, err := openAuditDB()
	if err != nil {
		return err
	}
	defer db.Close()

	entries, err := db.ListAudits(auditLimit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TRACKING ID\tSTATUS\tSTARTED\tUPDATED")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			e.TrackingID, e.Status,
			e.StartedAt.Format(time.RFC3339),
			e.UpdatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func runAuditShow(cmd *cobra.Command, args []string) error {
	db, err := openAuditDB()
	if err != nil {
		return err
	}
	defer db.Close()

	entry, err := db.GetAudit(args[0])
	if err != nil {
		return err
	}
	if entry == nil {
		return fmt.Errorf("no audit entry for %s", args[0])
	}

	fmt.Printf("tracking id: %s\n", entry.TrackingID)
	fmt.Printf("status:      %s\n", entry.Status)
	fmt.Printf("started:     %s\n", entry.StartedAt.Format(time.RFC3339))
	fmt.Printf("updated:     %s\n", entry.UpdatedAt.Format(time.RFC3339))
	if entry.InputJSON != "" {
		fmt.Printf("input:       %s\n", entry.InputJSON)
	}
	if entry.OutputJSON != "" {
		fmt.Printf("output:      %s\n", entry.OutputJSON)
	}
	if entry.Error != "" {
		fmt.Printf("error:       %s\n", entry.Error)
	}
	return nil
}
