package notify

import "fmt"

// QuotationMessage is the body sent to the sales team when a quotation
// has been generated.
func QuotationMessage(orderName, customerPhone, context string) string {
	if context == "" {
		context = "Quotation generated"
	}
	return fmt.Sprintf("Order: %s\nPhone: %s\nContext: %s", orderName, customerPhone, context)
}

// HandoffMessage is the body sent when a customer requests human
// attention before any quotation exists. vendorID 0 means unassigned.
func HandoffMessage(customerName, customerPhone, reason string, vendorID int64) string {
	if customerName == "" {
		customerName = "N/A"
	}
	vendor := "N/A"
	if vendorID > 0 {
		vendor = fmt.Sprintf("%d", vendorID)
	}
	return fmt.Sprintf(
		"Human attention requested\n\nCustomer: %s\nPhone: %s\nContext: %s\nAssigned vendor: ID %s",
		customerName, customerPhone, reason, vendor,
	)
}
