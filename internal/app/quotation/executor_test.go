package quotation

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/servibot/quoteflow/internal/domain"
	"github.com/servibot/quoteflow/internal/infra/odoo"
	"github.com/servibot/quoteflow/internal/infra/retry"
	"github.com/servibot/quoteflow/internal/infra/tracker"
)

// ─── Fakes ──────────────────────────────────────────────────────────────────

type createCall struct {
	model  string
	values map[string]interface{}
}

type fakeCRM struct {
	mu sync.Mutex

	partners       []odoo.Record
	teamMembers    []interface{}
	opportunities  []odoo.Record
	pricelistItems []odoo.Record
	products       map[int64]odoo.Record
	leadRecord     odoo.Record
	orderName      string

	searchModels []string
	creates      []createCall
	writes       []string

	failOp   string
	failLeft int
	failErr  error

	seq int64
}

func (f *fakeCRM) fail(op string) (bool, error) {
	if f.failLeft > 0 && f.failOp == op {
		f.failLeft--
		return true, f.failErr
	}
	return false, nil
}

func (f *fakeCRM) SearchRead(model string, filter []interface{}, fields []string, limit int) ([]odoo.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchModels = append(f.searchModels, model)
	if failed, err := f.fail("search:" + model); failed {
		return nil, err
	}
	switch model {
	case "res.partner":
		return f.partners, nil
	case "crm.team":
		return []odoo.Record{{"member_ids": f.teamMembers}}, nil
	case "crm.lead":
		return f.opportunities, nil
	case "product.pricelist.item":
		return f.pricelistItems, nil
	}
	return nil, nil
}

func (f *fakeCRM) Create(model string, values map[string]interface{}) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if failed, err := f.fail("create:" + model); failed {
		return 0, err
	}
	f.creates = append(f.creates, createCall{model, values})
	f.seq++
	return 1000 + f.seq, nil
}

func (f *fakeCRM) Write(model string, id int64, values map[string]interface{}) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, model)
	return true, nil
}

func (f *fakeCRM) Read(model string, id int64, fields []string) (odoo.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch model {
	case "crm.lead":
		return f.leadRecord, nil
	case "sale.order":
		return odoo.Record{"name": f.orderName}, nil
	case "product.product":
		return f.products[id], nil
	}
	return nil, nil
}

func (f *fakeCRM) createdModels() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	models := make([]string, len(f.creates))
	for i, c := range f.creates {
		models[i] = c.model
	}
	return models
}

func (f *fakeCRM) searches(model string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.searchModels {
		if m == model {
			n++
		}
	}
	return n
}

type fakeNotifier struct {
	enabled bool
	sid     string
	err     error
	bodies  []string
}

func (n *fakeNotifier) Enabled() bool { return n.enabled }

func (n *fakeNotifier) Send(to, body string) (string, error) {
	n.bodies = append(n.bodies, body)
	return n.sid, n.err
}

// ─── Harness ────────────────────────────────────────────────────────────────

func testSalesConfig() SalesConfig {
	return SalesConfig{
		TeamIDs:          []int64{14},
		ActiveStageIDs:   []int64{1, 2, 10, 3},
		QualifiedStageID: 3,
		PricelistID:      82,
	}
}

func newTestExecutor(crm *fakeCRM, notifier *fakeNotifier, slept *[]time.Duration) (*Executor, *tracker.Registry) {
	reg := tracker.New()
	cfg := ExecutorConfig{
		Connect: func() (CRM, error) { return crm, nil },
		Tasks:   reg,
		Retry: retry.Config{
			MaxAttempts:   3,
			BaseDelay:     2 * time.Second,
			MaxDelay:      10 * time.Second,
			BackoffFactor: 2.0,
			Sleep: func(d time.Duration) {
				if slept != nil {
					*slept = append(*slept, d)
				}
			},
		},
		Sales:  testSalesConfig(),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if notifier != nil {
		cfg.Notifier = notifier
	}
	return NewExecutor(cfg), reg
}

func runTask(t *testing.T, exec *Executor, reg *tracker.Registry, req domain.QuotationRequest) *domain.Task {
	t.Helper()
	id := tracker.NewTrackingID()
	task := reg.Create(id, req)
	exec.Run(id)
	return task
}

func baseRequest() domain.QuotationRequest {
	return domain.QuotationRequest{
		PartnerName: "Almacenes Torres",
		ContactName: "Luis Fernandez",
		Email:       "  Luis@Almacenes.com ",
		Phone:       "+521234567890",
		LeadName:    "Robot PUDU quotation",
		Products:    []domain.ProductLine{{ProductID: 26174, Quantity: 2, Price: -1}},
	}
}

// ─── Tests ──────────────────────────────────────────────────────────────────

func TestRun_FullWorkflowWithListPriceFallback(t *testing.T) {
	crm := &fakeCRM{
		teamMembers: []interface{}{int64(7)},
		orderName:   "S00042",
		products: map[int64]odoo.Record{
			26174: {"list_price": 50.0, "name": "Robot PUDU"},
		},
	}
	exec, reg := newTestExecutor(crm, nil, nil)

	task := runTask(t, exec, reg, baseRequest())

	require.Equal(t, domain.TaskCompleted, task.Status())
	view := task.View()
	require.NotNil(t, view.Result)
	res := view.Result

	assert.True(t, res.PartnerCreated)
	assert.Equal(t, int64(7), res.UserID)
	assert.Equal(t, "S00042", res.SaleOrderName)
	assert.Equal(t, res.LeadID, res.OpportunityID)

	require.Len(t, res.ProductsAdded, 1)
	assert.Equal(t, 50.0, res.ProductsAdded[0].Price)
	assert.Equal(t, 2.0, res.ProductsAdded[0].Quantity)
	assert.Contains(t, res.ProductsAdded[0].Note, "list price")

	assert.Equal(t, []string{"res.partner", "crm.lead", "sale.order", "sale.order.line"}, crm.createdModels())

	// partner search uses the normalized email
	require.NotEmpty(t, crm.creates)
	assert.Equal(t, "luis@almacenes.com", crm.creates[0].values["email"])

	// no notifier configured: outcome recorded as skipped
	require.NotNil(t, res.Notification)
	assert.Equal(t, "skipped", res.Notification.Status)
}

func TestRun_ReusesExistingPartner(t *testing.T) {
	crm := &fakeCRM{
		partners:    []odoo.Record{{"id": int64(33), "name": "Acme SA"}},
		teamMembers: []interface{}{int64(7)},
		orderName:   "S00043",
	}
	exec, reg := newTestExecutor(crm, nil, nil)

	req := baseRequest()
	req.Products = nil
	task := runTask(t, exec, reg, req)

	require.Equal(t, domain.TaskCompleted, task.Status())
	res := task.View().Result
	assert.False(t, res.PartnerCreated)
	assert.Equal(t, int64(33), res.PartnerID)
	assert.Equal(t, "Acme SA", res.PartnerName)
	assert.NotContains(t, crm.createdModels(), "res.partner")
}

func TestRun_ManualPriceWins(t *testing.T) {
	crm := &fakeCRM{
		teamMembers: []interface{}{int64(7)},
		orderName:   "S00044",
		pricelistItems: []odoo.Record{
			{"fixed_price": 120.0, "product_id": []interface{}{int64(26174), "Robot PUDU"}},
		},
	}
	exec, reg := newTestExecutor(crm, nil, nil)

	req := baseRequest()
	req.Products = []domain.ProductLine{{ProductID: 26174, Quantity: 1, Price: 99.5}}
	task := runTask(t, exec, reg, req)

	res := task.View().Result
	require.Len(t, res.ProductsAdded, 1)
	assert.Equal(t, 99.5, res.ProductsAdded[0].Price)
	assert.Contains(t, res.ProductsAdded[0].Note, "manual price")
	// pricelist never consulted for manual prices
	assert.Zero(t, crm.searches("product.pricelist.item"))
}

func TestRun_PricelistPriceBeatsListPrice(t *testing.T) {
	crm := &fakeCRM{
		teamMembers: []interface{}{int64(7)},
		orderName:   "S00045",
		pricelistItems: []odoo.Record{
			{"fixed_price": 120.0, "product_id": []interface{}{int64(26174), "Robot PUDU"}},
		},
		products: map[int64]odoo.Record{
			26174: {"list_price": 50.0, "name": "Robot PUDU"},
		},
	}
	exec, reg := newTestExecutor(crm, nil, nil)

	task := runTask(t, exec, reg, baseRequest())

	res := task.View().Result
	require.Len(t, res.ProductsAdded, 1)
	assert.Equal(t, 120.0, res.ProductsAdded[0].Price)
	assert.Contains(t, res.ProductsAdded[0].Note, "pricelist price")
}

func TestRun_TransientErrorRestartsWholeSequence(t *testing.T) {
	crm := &fakeCRM{
		teamMembers: []interface{}{int64(7)},
		orderName:   "S00046",
		failOp:      "create:sale.order",
		failLeft:    1,
		failErr:     errors.New("read tcp: connection reset by peer"),
	}
	var slept []time.Duration
	exec, reg := newTestExecutor(crm, nil, &slept)

	req := baseRequest()
	req.Products = nil
	task := runTask(t, exec, reg, req)

	require.Equal(t, domain.TaskCompleted, task.Status())
	// the whole sequence restarted: partner verified on both attempts
	assert.Equal(t, 2, crm.searches("res.partner"))
	require.Len(t, slept, 1)
	assert.Equal(t, 2*time.Second, slept[0])
}

func TestRun_PermanentErrorFailsImmediately(t *testing.T) {
	crm := &fakeCRM{
		teamMembers: []interface{}{int64(7)},
		failOp:      "create:crm.lead",
		failLeft:    3,
		failErr:     errors.New("validation error: missing required field"),
	}
	var slept []time.Duration
	exec, reg := newTestExecutor(crm, nil, &slept)

	req := baseRequest()
	req.Products = nil
	task := runTask(t, exec, reg, req)

	require.Equal(t, domain.TaskFailed, task.Status())
	view := task.View()
	assert.Nil(t, view.Result)
	assert.Contains(t, view.Error, "validation error")
	// error string carries the concrete error type
	assert.Contains(t, view.Error, "*")
	// no retry for non-transient failures
	assert.Empty(t, slept)
	assert.Equal(t, 1, crm.searches("res.partner"))
}

func TestRun_ExhaustedRetriesFailTask(t *testing.T) {
	crm := &fakeCRM{
		teamMembers: []interface{}{int64(7)},
		failOp:      "create:crm.lead",
		failLeft:    3,
		failErr:     errors.New("dial tcp: i/o timeout"),
	}
	var slept []time.Duration
	exec, reg := newTestExecutor(crm, nil, &slept)

	req := baseRequest()
	req.Products = nil
	task := runTask(t, exec, reg, req)

	require.Equal(t, domain.TaskFailed, task.Status())
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, slept)
	assert.Equal(t, 3, crm.searches("res.partner"))
}

func TestRun_ManualUserSkipsLoadBalancing(t *testing.T) {
	crm := &fakeCRM{orderName: "S00047"}
	exec, reg := newTestExecutor(crm, nil, nil)

	req := baseRequest()
	req.Products = nil
	req.UserID = 42
	task := runTask(t, exec, reg, req)

	res := task.View().Result
	assert.Equal(t, int64(42), res.UserID)
	assert.Zero(t, crm.searches("crm.team"))
}

func TestRun_NotificationOutcomeDoesNotAffectCompletion(t *testing.T) {
	crm := &fakeCRM{
		teamMembers: []interface{}{int64(7)},
		orderName:   "S00048",
	}
	notifier := &fakeNotifier{enabled: true, err: errors.New("twilio 401")}
	exec, reg := newTestExecutor(crm, notifier, nil)

	req := baseRequest()
	req.Products = nil
	task := runTask(t, exec, reg, req)

	require.Equal(t, domain.TaskCompleted, task.Status())
	res := task.View().Result
	require.NotNil(t, res.Notification)
	assert.Equal(t, "failed", res.Notification.Status)
	assert.Contains(t, res.Notification.Detail, "twilio 401")
}

func TestRun_NotificationSent(t *testing.T) {
	crm := &fakeCRM{
		teamMembers: []interface{}{int64(7)},
		orderName:   "S00049",
	}
	notifier := &fakeNotifier{enabled: true, sid: "SM123"}
	exec, reg := newTestExecutor(crm, notifier, nil)

	req := baseRequest()
	req.Products = nil
	task := runTask(t, exec, reg, req)

	res := task.View().Result
	require.NotNil(t, res.Notification)
	assert.Equal(t, "sent", res.Notification.Status)
	assert.Equal(t, "SM123", res.Notification.MessageSID)
	require.Len(t, notifier.bodies, 1)
	assert.Contains(t, notifier.bodies[0], "S00049")
}

func TestRun_UnknownTrackingIDIsNoop(t *testing.T) {
	exec, _ := newTestExecutor(&fakeCRM{}, nil, nil)
	exec.Run("quot_000000000000") // must not panic
}
