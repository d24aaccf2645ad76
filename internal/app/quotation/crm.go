// Package quotation runs the CRM quotation workflow: partner lookup,
// salesperson assignment, lead creation, opportunity conversion, sale
// order generation, and product lines. Tasks are executed in background
// goroutines and tracked through the task registry.
package quotation

import "github.com/servibot/quoteflow/internal/infra/odoo"

// CRM is the slice of the Odoo client the workflow needs. Satisfied by
// *odoo.Client; tests substitute an in-memory fake.
type CRM interface {
	SearchRead(model string, filter []interface{}, fields []string, limit int) ([]odoo.Record, error)
	Create(model string, values map[string]interface{}) (int64, error)
	Write(model string, id int64, values map[string]interface{}) (bool, error)
	Read(model string, id int64, fields []string) (odoo.Record, error)
}

// SalesConfig carries the CRM identifiers the workflow operates on.
type SalesConfig struct {
	TeamIDs          []int64 // sales teams whose members receive leads
	ActiveStageIDs   []int64 // pipeline stages counted as active load
	QualifiedStageID int64   // stage set when a lead becomes an opportunity
	PricelistID      int64   // pricelist consulted for automatic pricing
}

// DefaultSalesConfig matches the production CRM instance.
func DefaultSalesConfig() SalesConfig {
	return SalesConfig{
		TeamIDs:          []int64{14},
		ActiveStageIDs:   []int64{1, 2, 10, 3},
		QualifiedStageID: 3,
		PricelistID:      82,
	}
}

// cond builds one Odoo domain condition triple.
func cond(field, op string, value interface{}) []interface{} {
	return []interface{}{field, op, value}
}

// filter builds an Odoo domain from condition triples.
func filter(conds ...[]interface{}) []interface{} {
	out := make([]interface{}, len(conds))
	for i, c := range conds {
		out[i] = c
	}
	return out
}
