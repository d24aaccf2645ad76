package quotation

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/servibot/quoteflow/internal/domain"
	"github.com/servibot/quoteflow/internal/infra/metrics"
	"github.com/servibot/quoteflow/internal/infra/notify"
	"github.com/servibot/quoteflow/internal/infra/retry"
	"github.com/servibot/quoteflow/internal/infra/tracker"
)

// AuditLog records the quotation trail. Satisfied by *sqlite.DB.
type AuditLog interface {
	BeginAudit(trackingID, status, inputJSON string) error
	MarkAudit(trackingID, status string) error
	FinishAudit(trackingID, status, outputJSON, errMsg string) error
}

// ExecutorConfig wires the executor's collaborators. Connect and Tasks
// are required; Notifier and Audit may be nil.
type ExecutorConfig struct {
	Connect  func() (CRM, error)
	Tasks    *tracker.Registry
	Notifier notify.Notifier
	Audit    AuditLog
	Retry    retry.Config
	Sales    SalesConfig
	Logger   *slog.Logger
}

// Executor runs quotation workflows against the CRM.
type Executor struct {
	connect  func() (CRM, error)
	tasks    *tracker.Registry
	notifier notify.Notifier
	audit    AuditLog
	retry    retry.Config
	sales    SalesConfig
	logger   *slog.Logger
	now      func() time.Time
}

// NewExecutor builds an executor from config, filling in defaults.
func NewExecutor(cfg ExecutorConfig) *Executor {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultConfig()
	}
	if cfg.Sales.QualifiedStageID == 0 {
		cfg.Sales = DefaultSalesConfig()
	}
	return &Executor{
		connect:  cfg.Connect,
		tasks:    cfg.Tasks,
		notifier: cfg.Notifier,
		audit:    cfg.Audit,
		retry:    cfg.Retry,
		sales:    cfg.Sales,
		logger:   cfg.Logger,
		now:      time.Now,
	}
}

// Run executes the workflow for a dispatched task. Intended to be
// called in its own goroutine; all failure modes, panics included, end
// in a terminal task state rather than propagating.
func (e *Executor) Run(trackingID string) {
	task, ok := e.tasks.Get(trackingID)
	if !ok {
		return
	}
	log := e.logger.With("tracking_id", trackingID)
	req := task.Params()

	if e.audit != nil {
		input, _ := json.Marshal(req)
		if err := e.audit.BeginAudit(trackingID, "started", string(input)); err != nil {
			log.Warn("audit write failed", "error", err)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("panic: %v", r)
			task.Fail(msg)
			e.finishAudit(trackingID, "failed", "", msg, log)
			metrics.TasksFailed.WithLabelValues("panic").Inc()
			log.Error("workflow panicked", "panic", r)
		}
	}()

	task.Start()
	e.markAudit(trackingID, "processing", log)
	metrics.TasksActive.Inc()
	defer metrics.TasksActive.Dec()
	start := time.Now()

	// Count each retry sleep without replacing the configured sleeper.
	cfg := e.retry
	baseSleep := cfg.Sleep
	if baseSleep == nil {
		baseSleep = time.Sleep
	}
	cfg.Sleep = func(d time.Duration) {
		metrics.RetryAttempts.Inc()
		baseSleep(d)
	}

	result, err := retry.Do(cfg, log, func() (*domain.QuotationResult, error) {
		return e.runWorkflow(task, req)
	})
	metrics.WorkflowDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		msg := fmt.Sprintf("%T: %v", err, err)
		task.Fail(msg)
		reason := "permanent"
		if retry.IsTransient(err) {
			reason = "transient"
		}
		metrics.TasksFailed.WithLabelValues(reason).Inc()
		e.finishAudit(trackingID, "failed", "", msg, log)
		log.Error("quotation failed", "error", err, "elapsed", time.Since(start))
		return
	}

	// Notification is best-effort and never retried with the workflow.
	result.Notification = e.sendNotification(req, result, log)

	task.Complete(result)
	metrics.TasksCompleted.Inc()
	output, _ := json.Marshal(result)
	e.finishAudit(trackingID, "completed", string(output), "", log)
	log.Info("quotation completed",
		"sale_order", result.SaleOrderName,
		"partner_id", result.PartnerID,
		"elapsed", time.Since(start))
}

// runWorkflow performs one full attempt of the quotation sequence.
// A transient failure anywhere restarts the whole sequence, so earlier
// records may be created again on the next attempt.
func (e *Executor) runWorkflow(task *domain.Task, req domain.QuotationRequest) (*domain.QuotationResult, error) {
	res := &domain.QuotationResult{}

	task.UpdateProgress("Connecting to CRM...")
	crm, err := e.connect()
	if err != nil {
		return nil, err
	}

	// Step 1: find or create the partner by exact email match.
	task.UpdateProgress("Verifying partner...")
	email := strings.ToLower(strings.TrimSpace(req.Email))
	partners, err := crm.SearchRead("res.partner",
		filter(cond("email", "=", email)),
		[]string{"id", "name"}, 1)
	if err != nil {
		return nil, err
	}
	if len(partners) > 0 {
		res.PartnerID = partners[0].Int("id")
		res.PartnerName = partners[0].Str("name")
		res.Steps = append(res.Steps,
			fmt.Sprintf("existing partner reused for %s: %s (ID %d)", email, res.PartnerName, res.PartnerID))
	} else {
		id, err := crm.Create("res.partner", map[string]interface{}{
			"name":       req.ContactName,
			"email":      email,
			"phone":      req.Phone,
			"is_company": false,
			"type":       "contact",
		})
		if err != nil {
			return nil, err
		}
		res.PartnerID = id
		res.PartnerName = req.PartnerName
		res.PartnerCreated = true
		res.Steps = append(res.Steps,
			fmt.Sprintf("new partner created for %s (ID %d)", email, id))
	}

	// Step 2: assign a salesperson unless the caller fixed one.
	task.UpdateProgress("Assigning salesperson...")
	userID := req.UserID
	switch {
	case userID != 0:
		res.Steps = append(res.Steps, fmt.Sprintf("salesperson specified manually (ID %d)", userID))
	default:
		userID, err = LeastLoadedSalesperson(crm, e.sales)
		if err != nil {
			return nil, err
		}
		if userID != 0 {
			res.Steps = append(res.Steps, fmt.Sprintf("salesperson assigned by load balancing (ID %d)", userID))
		} else {
			res.Steps = append(res.Steps, "no salesperson available, left unassigned")
		}
	}
	res.UserID = userID

	// Step 3: create the lead.
	task.UpdateProgress("Creating lead...")
	leadValues := map[string]interface{}{
		"name":         req.LeadName,
		"partner_name": req.PartnerName,
		"contact_name": req.ContactName,
		"phone":        req.Phone,
		"email_from":   email,
		"type":         "lead",
		"partner_id":   res.PartnerID,
	}
	if userID != 0 {
		leadValues["user_id"] = userID
	}
	leadID, err := crm.Create("crm.lead", leadValues)
	if err != nil {
		return nil, err
	}
	res.LeadID = leadID
	res.LeadName = req.LeadName
	res.Steps = append(res.Steps, fmt.Sprintf("lead created: %s (ID %d)", req.LeadName, leadID))

	// Step 4: convert the lead to an opportunity.
	task.UpdateProgress("Converting to opportunity...")
	conversion := e.now().Format("2006-01-02 15:04:05")
	oppValues := map[string]interface{}{
		"type":            "opportunity",
		"date_conversion": conversion,
		"stage_id":        e.sales.QualifiedStageID,
	}
	if userID != 0 {
		oppValues["user_id"] = userID
	}
	if _, err := crm.Write("crm.lead", leadID, oppValues); err != nil {
		return nil, err
	}
	res.OpportunityID = leadID
	res.Steps = append(res.Steps,
		fmt.Sprintf("lead converted to opportunity (ID %d), conversion date %s", leadID, conversion))

	if lead, err := crm.Read("crm.lead", leadID, []string{"name", "date_conversion"}); err == nil && lead != nil {
		if name := lead.Str("name"); name != "" {
			res.LeadName = name
		}
	}

	// Step 5: generate the sale order.
	task.UpdateProgress("Creating quotation...")
	saleValues := map[string]interface{}{
		"partner_id":     res.PartnerID,
		"opportunity_id": leadID,
		"origin":         req.LeadName,
	}
	if userID != 0 {
		saleValues["user_id"] = userID
	}
	orderID, err := crm.Create("sale.order", saleValues)
	if err != nil {
		return nil, err
	}
	res.SaleOrderID = orderID

	res.SaleOrderName = fmt.Sprintf("S%d", orderID)
	if order, err := crm.Read("sale.order", orderID, []string{"name"}); err == nil && order != nil {
		if name := order.Str("name"); name != "" {
			res.SaleOrderName = name
		}
	}
	res.Steps = append(res.Steps,
		fmt.Sprintf("quotation created: %s (ID %d)", res.SaleOrderName, orderID))

	// Step 6: add the product lines.
	for _, line := range req.Products {
		if line.ProductID <= 0 {
			continue
		}
		task.UpdateProgress("Adding products...")
		added, err := e.addProductLine(crm, orderID, line)
		if err != nil {
			return nil, err
		}
		res.ProductsAdded = append(res.ProductsAdded, added)
		res.Steps = append(res.Steps,
			fmt.Sprintf("product line added (ID %d): %s", added.LineID, added.Note))
	}

	return res, nil
}

// addProductLine resolves the unit price and creates one order line.
// Manual prices win; otherwise the configured pricelist is consulted,
// falling back to the product's list price.
func (e *Executor) addProductLine(crm CRM, orderID int64, line domain.ProductLine) (domain.AddedLine, error) {
	qty := line.Quantity
	if qty <= 0 {
		qty = 1
	}

	var price float64
	var note string
	if line.Price > 0 {
		price = line.Price
		note = fmt.Sprintf("manual price: $%g", price)
	} else {
		items, err := crm.SearchRead("product.pricelist.item",
			filter(
				cond("pricelist_id", "=", e.sales.PricelistID),
				cond("product_id", "=", line.ProductID),
			),
			[]string{"fixed_price", "product_id"}, 1)
		if err != nil {
			return domain.AddedLine{}, err
		}
		if len(items) > 0 {
			price = items[0].Float("fixed_price")
			note = fmt.Sprintf("pricelist price for %q: $%g", items[0].RefName("product_id"), price)
		} else {
			product, err := crm.Read("product.product", line.ProductID, []string{"list_price", "name"})
			if err != nil {
				return domain.AddedLine{}, err
			}
			name := "unknown"
			if product != nil {
				price = product.Float("list_price")
				name = product.Str("name")
			}
			note = fmt.Sprintf("list price for %q: $%g", name, price)
		}
	}

	lineID, err := crm.Create("sale.order.line", map[string]interface{}{
		"order_id":        orderID,
		"product_id":      line.ProductID,
		"product_uom_qty": qty,
		"price_unit":      price,
	})
	if err != nil {
		return domain.AddedLine{}, err
	}

	return domain.AddedLine{
		LineID:    lineID,
		ProductID: line.ProductID,
		Quantity:  qty,
		Price:     price,
		Note:      note,
	}, nil
}

// sendNotification tells the sales team a quotation is ready. Failures
// are recorded in the result, never surfaced as workflow errors.
func (e *Executor) sendNotification(req domain.QuotationRequest, res *domain.QuotationResult, log *slog.Logger) *domain.NotificationOutcome {
	if e.notifier == nil || !e.notifier.Enabled() {
		metrics.NotificationsSent.WithLabelValues(notify.StatusSkipped).Inc()
		return &domain.NotificationOutcome{Status: notify.StatusSkipped, Detail: "notifications not configured"}
	}

	body := notify.QuotationMessage(res.SaleOrderName, req.Phone, "")
	sid, err := e.notifier.Send("", body)
	if err != nil {
		log.Warn("notification failed", "error", err)
		metrics.NotificationsSent.WithLabelValues(notify.StatusFailed).Inc()
		return &domain.NotificationOutcome{Status: notify.StatusFailed, Detail: err.Error()}
	}
	metrics.NotificationsSent.WithLabelValues(notify.StatusSent).Inc()
	return &domain.NotificationOutcome{Status: notify.StatusSent, MessageSID: sid}
}

func (e *Executor) markAudit(trackingID, status string, log *slog.Logger) {
	if e.audit == nil {
		return
	}
	if err := e.audit.MarkAudit(trackingID, status); err != nil {
		log.Warn("audit write failed", "error", err)
	}
}

func (e *Executor) finishAudit(trackingID, status, output, errMsg string, log *slog.Logger) {
	if e.audit == nil {
		return
	}
	if err := e.audit.FinishAudit(trackingID, status, output, errMsg); err != nil {
		log.Warn("audit write failed", "error", err)
	}
}
