package cli

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	quoteCmd.Flags().StringVar(&quoteServer, "server", "http://127.0.0.1:8090", "QuoteFlow server URL")
	quoteCmd.Flags().StringVar(&quotePartner, "partner", "", "Company name (required)")
	quoteCmd.Flags().StringVar(&quoteContact, "contact", "", "Contact name (required)")
	quoteCmd.Flags().StringVar(&quoteEmail, "email", "", "Contact email (required)")
	quoteCmd.Flags().StringVar(&quotePhone, "phone", "", "Contact phone (required)")
	quoteCmd.Flags().StringVar(&quoteLead, "lead", "", "Lead name (required)")
	quoteCmd.Flags().Int64Var(&quoteProduct, "product", 0, "Product id (0 = no product line)")
	quoteCmd.Flags().Float64Var(&quoteQty, "qty", 1, "Product quantity")
	quoteCmd.Flags().Float64Var(&quotePrice, "price", -1, "Manual unit price (-1 = automatic)")
	quoteCmd.Flags().Int64Var(&quoteUser, "user", 0, "Salesperson id (0 = load-balanced)")
	quoteCmd.Flags().BoolVar(&quoteWait, "wait", false, "Poll until the workflow finishes")
	rootCmd.AddCommand(quoteCmd)
}

var (
	quoteServer  string
	quotePartner string
	quoteContact string
	quoteEmail   string
	quotePhone   string
	quoteLead    string
	quoteProduct int64
	quoteQty     float64
	quotePrice   float64
	quoteUser    int64
	quoteWait    bool
)

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Submit a quotation request to a running server",
	RunE:  runQuote,
}

func runQuote(cmd *cobra.Command, args []string) error {
	c := newClient(quoteServer)

	payload := map[string]interface{}{
		"partner_name": quotePartner,
		"contact_name": quoteContact,
		"email":        quoteEmail,
		"phone":        quotePhone,
		"lead_name":    quoteLead,
		"user_id":      quoteUser,
	}
	if quoteProduct > 0 {
		payload["product_id"] = quoteProduct
		payload["product_qty"] = quoteQty
		payload["product_price"] = quotePrice
	}

	var body map[string]interface{}
	status, err := c.postJSON("/api/quotation/async", payload, &body)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return apiError(body, status)
	}

	trackingID, _ := body["tracking_id"].(string)
	if !quoteWait {
		return printJSON(body)
	}

	fmt.Printf("dispatched %s, waiting...\n", trackingID)
	return pollStatus(c, trackingID, 2*time.Minute)
}

// pollStatus queries the status endpoint until the task is terminal.
func pollStatus(c *client, trackingID string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		var body map[string]interface{}
		status, err := c.getJSON("/api/quotation/status/"+trackingID, &body)
		if err != nil {
			return err
		}
		if status != http.StatusOK {
			return apiError(body, status)
		}

		switch body["status"] {
		case "completed", "failed":
			return printJSON(body)
		}
		if progress, ok := body["progress"].(string); ok {
			fmt.Printf("  %s\n", progress)
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("timed out waiting for %s", trackingID)
		}
		time.Sleep(2 * time.Second)
	}
}
