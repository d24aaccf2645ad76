package domain

// ProductLine is one requested product on a quotation. Price < 0 means
// "resolve automatically" (price-list entry, then the product's list price).
type ProductLine struct {
	ProductID int64   `json:"product_id"`
	Quantity  float64 `json:"qty"`
	Price     float64 `json:"price"`
}

// QuotationRequest is the normalized dispatch payload. The HTTP boundary
// accepts either a products list or the legacy single product triple and
// folds both into Products before the request reaches the executor.
type QuotationRequest struct {
	PartnerName string        `json:"partner_name"`
	ContactName string        `json:"contact_name"`
	Email       string        `json:"email"`
	Phone       string        `json:"phone"`
	LeadName    string        `json:"lead_name"`
	UserID      int64         `json:"user_id,omitempty"` // 0 = auto-assign by load balancing
	Notes       string        `json:"notes,omitempty"`
	Products    []ProductLine `json:"products,omitempty"`
}

// AddedLine records one order line the workflow created, with the price it
// resolved and where the price came from.
type AddedLine struct {
	LineID    int64   `json:"line_id"`
	ProductID int64   `json:"product_id"`
	Quantity  float64 `json:"qty"`
	Price     float64 `json:"price"`
	Note      string  `json:"note,omitempty"`
}

// NotificationOutcome is the best-effort notification result attached to a
// completed quotation. Status is sent, failed, or skipped; it never
// changes the task's own terminal status.
type NotificationOutcome struct {
	Status     string `json:"status"`
	MessageSID string `json:"message_sid,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

// QuotationResult is every identifier and value the workflow produced.
type QuotationResult struct {
	PartnerID      int64       `json:"partner_id"`
	PartnerName    string      `json:"partner_name"`
	PartnerCreated bool        `json:"partner_created"`
	UserID         int64       `json:"user_id"`
	LeadID         int64       `json:"lead_id"`
	LeadName       string      `json:"lead_name"`
	OpportunityID  int64       `json:"opportunity_id"` // same record as the lead after conversion
	SaleOrderID    int64       `json:"sale_order_id"`
	SaleOrderName  string      `json:"sale_order_name"`
	ProductsAdded  []AddedLine `json:"products_added,omitempty"`
	Steps          []string    `json:"steps,omitempty"`

	Notification *NotificationOutcome `json:"notification,omitempty"`
}
