package usecase

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/polkiloo/orderdesk/internal/domain/model"
	testhelpers "github.com/polkiloo/orderdesk/internal/test"
)

var (
	adminActor  = model.Actor{ID: "1", Role: model.RoleAdmin}
	staffActor  = model.Actor{ID: "2", Role: model.RoleStaff}
	viewerActor = model.Actor{ID: "3", Role: model.RoleViewer}

	testLoc = time.FixedZone("EST", -5*3600)
)

type testEnv struct {
	store    *testhelpers.MemoryStore
	notifier *testhelpers.NotifierStub
	clock    Clock
	now      time.Time
	audit    *Auditor
	logger   *slog.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store:    testhelpers.NewMemoryStore(),
		notifier: &testhelpers.NotifierStub{},
		now:      time.Date(2024, 6, 15, 10, 0, 0, 0, testLoc),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	env.clock = NewFixedClock(testLoc, func() time.Time { return env.now })
	env.store.Now = func() time.Time { return env.now }
	env.audit = NewAuditor(env.store, env.clock, env.logger)
	return env
}

func (e *testEnv) orders() *OrderUseCase {
	return NewOrderUseCase(e.store, e.store, e.audit, e.clock, e.logger)
}

func (e *testEnv) invoices() *InvoiceUseCase {
	return NewInvoiceUseCase(e.store, e.store, e.notifier, e.audit, e.clock, e.logger)
}

func (e *testEnv) reminders() *ReminderUseCase {
	return NewReminderUseCase(e.store, e.notifier, e.audit, e.clock, nil, e.logger)
}

func (e *testEnv) payments(verifier WebhookVerifier) *PaymentUseCase {
	return NewPaymentUseCase(e.store, e.store, verifier, e.notifier, e.audit, e.clock, e.logger)
}

func (e *testEnv) settings() *SettingsUseCase {
	return NewSettingsUseCase(e.store, e.store, e.audit, e.logger)
}

// seedOrder stores an order with a 10000 subtotal in ON.
func (e *testEnv) seedOrder(status model.OrderStatus) int64 {
	return e.store.SeedOrder(model.Order{
		Status:        status,
		CustomerName:  "Jane Doe",
		CustomerEmail: "jane@example.com",
		PackageName:   "Standard",
		BasePrice:     8000,
		AddOns:        []model.AddOn{{Description: "Rush", Amount: 2000}},
		Subtotal:      10000,
		Jurisdiction:  "ON",
	})
}

func ptr[T any](v T) *T { return &v }
