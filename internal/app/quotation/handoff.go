package quotation

import (
	"fmt"

	"github.com/servibot/quoteflow/internal/domain"
	"github.com/servibot/quoteflow/internal/infra/notify"
)

// HandoffRequest asks for a salesperson to take over a conversation.
type HandoffRequest struct {
	UserPhone         string `json:"user_phone"`
	Reason            string `json:"reason"`
	UserName          string `json:"user_name,omitempty"`
	AdditionalContext string `json:"additional_context,omitempty"`
	LeadID            int64  `json:"lead_id,omitempty"`
	SaleOrderID       int64  `json:"sale_order_id,omitempty"`
}

// HandoffResult reports the notification outcome.
type HandoffResult struct {
	Status         string `json:"status"`
	MessageSID     string `json:"message_sid,omitempty"`
	AssignedUserID int64  `json:"assigned_user_id,omitempty"`
}

// Handoff notifies a salesperson that a customer wants human attention.
// The salesperson comes from the lead, then the sale order, then load
// balancing; when none resolves the message still goes to the default
// recipient. Runs synchronously.
func (e *Executor) Handoff(req HandoffRequest) (*HandoffResult, error) {
	if e.notifier == nil || !e.notifier.Enabled() {
		return nil, fmt.Errorf("handoff: notification service not configured")
	}
	if req.UserPhone == "" || req.Reason == "" {
		return nil, fmt.Errorf("%w: user_phone and reason are required", domain.ErrInvalidRequest)
	}

	crm, err := e.connect()
	if err != nil {
		return nil, err
	}

	var userID int64
	switch {
	case req.LeadID > 0:
		if lead, err := crm.Read("crm.lead", req.LeadID, []string{"user_id"}); err == nil && lead != nil {
			userID, _ = lead.Ref("user_id")
		}
	case req.SaleOrderID > 0:
		if order, err := crm.Read("sale.order", req.SaleOrderID, []string{"user_id"}); err == nil && order != nil {
			userID, _ = order.Ref("user_id")
		}
	}
	if userID == 0 {
		// Best-effort: an unassignable handoff still notifies the team.
		userID, _ = LeastLoadedSalesperson(crm, e.sales)
	}

	body := e.handoffBody(crm, req, userID)
	sid, err := e.notifier.Send("", body)
	if err != nil {
		return nil, err
	}

	return &HandoffResult{Status: notify.StatusSent, MessageSID: sid, AssignedUserID: userID}, nil
}

// handoffBody prefers the quotation summary when the lead already has
// a sale order, otherwise the plain attention-requested message.
func (e *Executor) handoffBody(crm CRM, req HandoffRequest, userID int64) string {
	if req.LeadID > 0 {
		leads, err := crm.SearchRead("crm.lead",
			filter(cond("id", "=", req.LeadID)),
			[]string{"name", "order_ids"}, 1)
		if err == nil && len(leads) > 0 {
			if orderIDs := leads[0].IDs("order_ids"); len(orderIDs) > 0 {
				if order, err := crm.Read("sale.order", orderIDs[0], []string{"name"}); err == nil && order != nil {
					return notify.QuotationMessage(order.Str("name"), req.UserPhone, req.AdditionalContext)
				}
			}
		}
	}

	reason := req.AdditionalContext
	if reason == "" {
		reason = req.Reason
	}
	return notify.HandoffMessage(req.UserName, req.UserPhone, reason, userID)
}
