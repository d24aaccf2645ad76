package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/servibot/quoteflow/internal/app/quotation"
	"github.com/servibot/quoteflow/internal/domain"
	"github.com/servibot/quoteflow/internal/infra/tracker"
)

// quotationPayload is the dispatch request body. Product lines come in
// two shapes: the legacy single product_id/product_qty/product_price
// triple, or a products list. Both normalize to []domain.ProductLine.
type quotationPayload struct {
	PartnerName string `json:"partner_name"`
	ContactName string `json:"contact_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	LeadName    string `json:"lead_name"`
	UserID      int64  `json:"user_id"`
	Notes       string `json:"notes"`

	ProductID    int64    `json:"product_id"`
	ProductQty   float64  `json:"product_qty"`
	ProductPrice *float64 `json:"product_price"`

	Products *[]productPayload `json:"products"`
}

type productPayload struct {
	ProductID    int64    `json:"product_id"`
	ProductQty   float64  `json:"product_qty"`
	ProductPrice *float64 `json:"product_price"`
}

// normalize validates the payload and produces the workflow request.
func (p *quotationPayload) normalize() (domain.QuotationRequest, error) {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"partner_name", p.PartnerName},
		{"contact_name", p.ContactName},
		{"email", p.Email},
		{"phone", p.Phone},
		{"lead_name", p.LeadName},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return domain.QuotationRequest{}, fmt.Errorf("%w: missing required fields: %s", domain.ErrInvalidRequest, strings.Join(missing, ", "))
	}
	if p.UserID < 0 {
		return domain.QuotationRequest{}, fmt.Errorf("%w: user_id must not be negative", domain.ErrInvalidRequest)
	}

	req := domain.QuotationRequest{
		PartnerName: p.PartnerName,
		ContactName: p.ContactName,
		Email:       p.Email,
		Phone:       p.Phone,
		LeadName:    p.LeadName,
		UserID:      p.UserID,
		Notes:       p.Notes,
	}

	switch {
	case p.Products != nil:
		// An explicitly provided list must not be empty.
		if len(*p.Products) == 0 {
			return domain.QuotationRequest{}, fmt.Errorf("%w: products list must not be empty", domain.ErrInvalidRequest)
		}
		for i, item := range *p.Products {
			line, err := item.toLine()
			if err != nil {
				return domain.QuotationRequest{}, fmt.Errorf("products[%d]: %w", i, err)
			}
			req.Products = append(req.Products, line)
		}
	case p.ProductID > 0:
		line, err := productPayload{
			ProductID:    p.ProductID,
			ProductQty:   p.ProductQty,
			ProductPrice: p.ProductPrice,
		}.toLine()
		if err != nil {
			return domain.QuotationRequest{}, err
		}
		req.Products = []domain.ProductLine{line}
	case p.ProductID < 0:
		return domain.QuotationRequest{}, fmt.Errorf("%w: product_id must not be negative", domain.ErrInvalidRequest)
	}

	return req, nil
}

func (p productPayload) toLine() (domain.ProductLine, error) {
	if p.ProductID <= 0 {
		return domain.ProductLine{}, fmt.Errorf("%w: product_id is required", domain.ErrInvalidRequest)
	}
	qty := p.ProductQty
	if qty < 0 {
		return domain.ProductLine{}, fmt.Errorf("%w: product_qty must not be negative", domain.ErrInvalidRequest)
	}
	if qty == 0 {
		qty = 1
	}
	price := -1.0 // auto-resolve from pricelist / list price
	if p.ProductPrice != nil {
		price = *p.ProductPrice
	}
	return domain.ProductLine{ProductID: p.ProductID, Quantity: qty, Price: price}, nil
}

// handleCreateQuotation dispatches an asynchronous quotation workflow
// and returns the tracking id immediately.
func (s *Server) handleCreateQuotation(w http.ResponseWriter, r *http.Request) {
	var payload quotationPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	req, err := payload.normalize()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	trackingID := tracker.NewTrackingID()
	s.tasks.Create(trackingID, req)
	go s.exec.Run(trackingID)

	s.logger.Info("quotation dispatched", "tracking_id", trackingID, "email", req.Email)

	writeJSON(w, http.StatusOK, map[string]string{
		"tracking_id":    trackingID,
		"status":         string(domain.TaskQueued),
		"message":        "Quotation in progress. Poll the status endpoint with the tracking_id.",
		"estimated_time": "20-30 seconds",
		"status_url":     "/api/quotation/status/" + trackingID,
	})
}

// handleQuotationStatus serializes the tracked task.
func (s *Server) handleQuotationStatus(w http.ResponseWriter, r *http.Request) {
	trackingID := chi.URLParam(r, "trackingID")

	task, ok := s.tasks.Get(trackingID)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("tracking id %q not found", trackingID))
		return
	}

	writeJSON(w, http.StatusOK, task.View())
}

// handleHandoff notifies a salesperson synchronously.
func (s *Server) handleHandoff(w http.ResponseWriter, r *http.Request) {
	var req quotation.HandoffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	result, err := s.exec.Handoff(req)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, domain.ErrInvalidRequest) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}
