package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/servibot/quoteflow/internal/domain"
)

func init() {
	statusCmd.Flags().StringVar(&statusServer, "server", "http://127.0.0.1:8090", "QuoteFlow server URL")
	rootCmd.AddCommand(statusCmd)
}

var statusServer string

var statusCmd = &cobra.Command{
	Use:   "status <tracking-id>",
	Short: "Show the state of a dispatched quotation",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	c := newClient(statusServer)

	var body map[string]interface{}
	status, err := c.getJSON("/api/quotation/status/"+args[0], &body)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return fmt.Errorf("%s: %w", args[0], domain.ErrTaskNotFound)
	}
	if status != http.StatusOK {
		return apiError(body, status)
	}
	return printJSON(body)
}
