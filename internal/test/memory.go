package test

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	domainErrors "github.com/polkiloo/orderdesk/internal/domain/errors"
	"github.com/polkiloo/orderdesk/internal/domain/model"
	"github.com/polkiloo/orderdesk/internal/domain/repository"
)

type memState struct {
	orders        map[int64]model.Order
	history       []model.StatusHistoryEntry
	invoices      map[int64]model.Invoice
	payments      map[int64]model.Payment
	reminderLogs  []model.ReminderLog
	pauses        map[int64]string
	webhookEvents map[string]model.WebhookEvent
	users         map[string]model.StaffUser
	audit         []model.AuditEntry

	tax             *model.TaxSettings
	invoiceSettings *model.InvoiceSettings
	reminder        *model.ReminderSettings

	nextID int64
}

func newMemState() memState {
	return memState{
		orders:        make(map[int64]model.Order),
		invoices:      make(map[int64]model.Invoice),
		payments:      make(map[int64]model.Payment),
		pauses:        make(map[int64]string),
		webhookEvents: make(map[string]model.WebhookEvent),
		users:         make(map[string]model.StaffUser),
	}
}

func (s memState) clone() memState {
	c := s
	c.orders = maps.Clone(s.orders)
	c.history = slices.Clone(s.history)
	c.invoices = maps.Clone(s.invoices)
	c.payments = maps.Clone(s.payments)
	c.reminderLogs = slices.Clone(s.reminderLogs)
	c.pauses = maps.Clone(s.pauses)
	c.webhookEvents = maps.Clone(s.webhookEvents)
	c.users = maps.Clone(s.users)
	c.audit = slices.Clone(s.audit)
	return c
}

func (s *memState) id() int64 {
	s.nextID++
	return s.nextID
}

// MemoryStore is an in-memory UnitOfWork and repository Factory. Transactions
// run serialized on a snapshot that replaces the committed state only when fn
// succeeds. The invoice sequence is not rolled back, matching a database sequence.
type MemoryStore struct {
	mu        sync.Mutex
	state     memState
	invoiceNo int64

	// Errs injects failures by operation name, e.g. "Payments.Insert".
	Errs map[string]error
	// Now stamps rows that the database would default.
	Now func() time.Time

	Transactions int
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemState(), invoiceNo: 1000, Errs: map[string]error{}, Now: time.Now}
}

var (
	_ repository.UnitOfWork = (*MemoryStore)(nil)
	_ repository.Factory    = (*MemoryStore)(nil)
)

// Within runs fn on a snapshot and commits it when fn returns nil.
func (m *MemoryStore) Within(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("Within"); err != nil {
		return err
	}
	m.Transactions++
	snapshot := m.state.clone()
	v := &memView{store: m, tx: &snapshot}
	if err := fn(ctx, v); err != nil {
		return err
	}
	m.state = snapshot
	return nil
}

func (m *MemoryStore) fail(op string) error {
	if m.Errs == nil {
		return nil
	}
	return m.Errs[op]
}

func (m *MemoryStore) pool() *memView { return &memView{store: m} }

func (m *MemoryStore) Orders() repository.OrderRepository       { return m.pool().Orders() }
func (m *MemoryStore) History() repository.HistoryRepository    { return m.pool().History() }
func (m *MemoryStore) Invoices() repository.InvoiceRepository   { return m.pool().Invoices() }
func (m *MemoryStore) Payments() repository.PaymentRepository   { return m.pool().Payments() }
func (m *MemoryStore) Reminders() repository.ReminderRepository { return m.pool().Reminders() }
func (m *MemoryStore) Settings() repository.SettingsRepository  { return m.pool().Settings() }
func (m *MemoryStore) WebhookEvents() repository.WebhookEventRepository {
	return m.pool().WebhookEvents()
}
func (m *MemoryStore) Users() repository.UserRepository  { return memUsers{m.pool()} }
func (m *MemoryStore) Audit() repository.AuditRepository { return memAudit{m.pool()} }

// SeedOrder stores order as committed state and returns its id.
func (m *MemoryStore) SeedOrder(order model.Order) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if order.ID == 0 {
		order.ID = m.state.id()
	}
	m.state.orders[order.ID] = order
	return order.ID
}

// SeedInvoice stores invoice as committed state and returns its id.
func (m *MemoryStore) SeedInvoice(inv model.Invoice) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inv.ID == 0 {
		inv.ID = m.state.id()
	}
	m.state.invoices[inv.ID] = inv
	return inv.ID
}

// SeedReminderLog appends a committed reminder log entry.
func (m *MemoryStore) SeedReminderLog(entry model.ReminderLog) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.ID = m.state.id()
	m.state.reminderLogs = append(m.state.reminderLogs, entry)
}

// Order returns the committed order.
func (m *MemoryStore) Order(id int64) (model.Order, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.state.orders[id]
	return o, ok
}

// InvoiceFor returns the committed invoice of an order.
func (m *MemoryStore) InvoiceFor(orderID int64) (model.Invoice, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.state.invoices {
		if inv.OrderID == orderID {
			return inv, true
		}
	}
	return model.Invoice{}, false
}

// InvoiceCount returns the number of committed invoices.
func (m *MemoryStore) InvoiceCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.invoices)
}

// AllPayments returns committed payments ordered by id.
func (m *MemoryStore) AllPayments() []model.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := slices.Collect(maps.Values(m.state.payments))
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// HistoryFor returns committed history rows of an order.
func (m *MemoryStore) HistoryFor(orderID int64) []model.StatusHistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.StatusHistoryEntry
	for _, e := range m.state.history {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out
}

// ReminderLogs returns committed reminder log entries.
func (m *MemoryStore) ReminderLogs() []model.ReminderLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.state.reminderLogs)
}

// AuditEntries returns committed audit entries.
func (m *MemoryStore) AuditEntries() []model.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.state.audit)
}

// WebhookEventCount returns the number of recorded provider events.
func (m *MemoryStore) WebhookEventCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.webhookEvents)
}

// memView binds repositories either to a transaction snapshot or to the
// committed state.
type memView struct {
	store *MemoryStore
	tx    *memState
}

func (v *memView) Orders() repository.OrderRepository               { return memOrders{v} }
func (v *memView) History() repository.HistoryRepository            { return memHistory{v} }
func (v *memView) Invoices() repository.InvoiceRepository           { return memInvoices{v} }
func (v *memView) Payments() repository.PaymentRepository           { return memPayments{v} }
func (v *memView) Reminders() repository.ReminderRepository         { return memReminders{v} }
func (v *memView) Settings() repository.SettingsRepository          { return memSettings{v} }
func (v *memView) WebhookEvents() repository.WebhookEventRepository { return memWebhookEvents{v} }

func (v *memView) do(op string, fn func(s *memState) error) error {
	if v.tx == nil {
		v.store.mu.Lock()
		defer v.store.mu.Unlock()
	}
	if err := v.store.fail(op); err != nil {
		return err
	}
	if v.tx != nil {
		return fn(v.tx)
	}
	return fn(&v.store.state)
}

func (v *memView) now() time.Time {
	if v.store.Now != nil {
		return v.store.Now()
	}
	return time.Now()
}

type memOrders struct{ *memView }

func (v memOrders) Create(ctx context.Context, order *model.Order) error {
	return v.do("Orders.Create", func(s *memState) error {
		order.ID = s.id()
		order.CreatedAt = v.now()
		order.UpdatedAt = order.CreatedAt
		s.orders[order.ID] = *order
		return nil
	})
}

func (v memOrders) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	return v.getOrder("Orders.GetByID", id)
}

func (v memOrders) GetForUpdate(ctx context.Context, id int64) (*model.Order, error) {
	return v.getOrder("Orders.GetForUpdate", id)
}

func (v memOrders) getOrder(op string, id int64) (*model.Order, error) {
	var out *model.Order
	err := v.do(op, func(s *memState) error {
		o, ok := s.orders[id]
		if !ok {
			return domainErrors.NotFoundf("order %d not found", id)
		}
		out = &o
		return nil
	})
	return out, err
}

func (v memOrders) UpdateStatus(ctx context.Context, id int64, status model.OrderStatus) error {
	return v.do("Orders.UpdateStatus", func(s *memState) error {
		o, ok := s.orders[id]
		if !ok {
			return domainErrors.NotFoundf("order %d not found", id)
		}
		o.Status = status
		o.UpdatedAt = v.now()
		s.orders[id] = o
		return nil
	})
}

func (v memOrders) UpdateTotals(ctx context.Context, id int64, taxAmount, totalAmount int64) error {
	return v.do("Orders.UpdateTotals", func(s *memState) error {
		o, ok := s.orders[id]
		if !ok {
			return domainErrors.NotFoundf("order %d not found", id)
		}
		o.TaxAmount = taxAmount
		o.TotalAmount = totalAmount
		s.orders[id] = o
		return nil
	})
}

type memHistory struct{ *memView }

func (v memHistory) Append(ctx context.Context, entry *model.StatusHistoryEntry) error {
	return v.do("History.Append", func(s *memState) error {
		entry.ID = s.id()
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = v.now()
		}
		s.history = append(s.history, *entry)
		return nil
	})
}

func (v memHistory) ListByOrder(ctx context.Context, orderID int64) ([]model.StatusHistoryEntry, error) {
	var out []model.StatusHistoryEntry
	err := v.do("History.ListByOrder", func(s *memState) error {
		for _, e := range s.history {
			if e.OrderID == orderID {
				out = append(out, e)
			}
		}
		return nil
	})
	return out, err
}

type memInvoices struct{ *memView }

func (v memInvoices) Create(ctx context.Context, inv *model.Invoice) (bool, error) {
	var created bool
	err := v.do("Invoices.Create", func(s *memState) error {
		for _, existing := range s.invoices {
			if existing.OrderID == inv.OrderID {
				return nil
			}
			if existing.Number == inv.Number || existing.ExternalReference == inv.ExternalReference {
				return domainErrors.Wrapf(domainErrors.ErrAlreadyExists, "invoice %s", inv.Number)
			}
		}
		inv.ID = s.id()
		inv.CreatedAt = v.now()
		inv.LineItems = slices.Clone(inv.LineItems)
		s.invoices[inv.ID] = *inv
		created = true
		return nil
	})
	return created, err
}

func (v memInvoices) UpdateStatus(ctx context.Context, id int64, status model.InvoiceStatus, at time.Time) error {
	return v.do("Invoices.UpdateStatus", func(s *memState) error {
		inv, ok := s.invoices[id]
		if !ok {
			return domainErrors.NotFoundf("invoice %d not found", id)
		}
		inv.Status = status
		switch status {
		case model.InvoiceStatusSent:
			inv.SentAt = &at
		case model.InvoiceStatusPaid:
			inv.PaidAt = &at
		}
		s.invoices[id] = inv
		return nil
	})
}

func (v memInvoices) MarkSent(ctx context.Context, id int64, at time.Time) (bool, error) {
	var marked bool
	err := v.do("Invoices.MarkSent", func(s *memState) error {
		inv, ok := s.invoices[id]
		if !ok {
			return domainErrors.NotFoundf("invoice %d not found", id)
		}
		if inv.Status != model.InvoiceStatusDraft {
			return nil
		}
		inv.Status = model.InvoiceStatusSent
		inv.SentAt = &at
		s.invoices[id] = inv
		marked = true
		return nil
	})
	return marked, err
}

func (v memInvoices) GetByOrderID(ctx context.Context, orderID int64) (*model.Invoice, error) {
	var out *model.Invoice
	err := v.do("Invoices.GetByOrderID", func(s *memState) error {
		for _, inv := range s.invoices {
			if inv.OrderID == orderID {
				inv := inv
				out = &inv
				return nil
			}
		}
		return domainErrors.NotFoundf("invoice for order %d not found", orderID)
	})
	return out, err
}

func (v memInvoices) GetByExternalReference(ctx context.Context, reference string) (*model.Invoice, error) {
	var out *model.Invoice
	err := v.do("Invoices.GetByExternalReference", func(s *memState) error {
		for _, inv := range s.invoices {
			if inv.ExternalReference == reference {
				inv := inv
				out = &inv
				return nil
			}
		}
		return domainErrors.NotFoundf("invoice %q not found", reference)
	})
	return out, err
}

func (v memInvoices) ListUnpaid(ctx context.Context) ([]model.Invoice, error) {
	var out []model.Invoice
	err := v.do("Invoices.ListUnpaid", func(s *memState) error {
		for _, inv := range s.invoices {
			if inv.Status.Unpaid() {
				out = append(out, inv)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}

func (v memInvoices) NextNumber(ctx context.Context) (int64, error) {
	var n int64
	err := v.do("Invoices.NextNumber", func(*memState) error {
		v.store.invoiceNo++
		n = v.store.invoiceNo
		return nil
	})
	return n, err
}

type memPayments struct{ *memView }

func (v memPayments) Insert(ctx context.Context, p *model.Payment) (bool, error) {
	var inserted bool
	err := v.do("Payments.Insert", func(s *memState) error {
		for _, existing := range s.payments {
			if existing.ExternalReference == p.ExternalReference {
				return nil
			}
		}
		p.ID = s.id()
		p.CreatedAt = v.now()
		s.payments[p.ID] = *p
		inserted = true
		return nil
	})
	return inserted, err
}

func (v memPayments) UpdateStatusByReference(ctx context.Context, reference string, status model.PaymentStatus) (bool, error) {
	var found bool
	err := v.do("Payments.UpdateStatusByReference", func(s *memState) error {
		for id, p := range s.payments {
			if p.ExternalReference == reference {
				p.Status = status
				s.payments[id] = p
				found = true
			}
		}
		return nil
	})
	return found, err
}

func (v memPayments) HasManualForOrder(ctx context.Context, orderID int64) (bool, error) {
	var exists bool
	err := v.do("Payments.HasManualForOrder", func(s *memState) error {
		for _, p := range s.payments {
			if p.Source != model.PaymentSourceManual {
				continue
			}
			if inv, ok := s.invoices[p.InvoiceID]; ok && inv.OrderID == orderID {
				exists = true
			}
		}
		return nil
	})
	return exists, err
}

func (v memPayments) ListByInvoice(ctx context.Context, invoiceID int64) ([]model.Payment, error) {
	var out []model.Payment
	err := v.do("Payments.ListByInvoice", func(s *memState) error {
		for _, p := range s.payments {
			if p.InvoiceID == invoiceID {
				out = append(out, p)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}

type memReminders struct{ *memView }

func (v memReminders) ListCandidates(ctx context.Context) ([]model.ReminderCandidate, error) {
	var out []model.ReminderCandidate
	err := v.do("Reminders.ListCandidates", func(s *memState) error {
		for _, inv := range s.invoices {
			if !inv.Status.Unpaid() {
				continue
			}
			o, ok := s.orders[inv.OrderID]
			if !ok || o.Status == model.OrderStatusCancelled || o.Status == model.OrderStatusDelivered {
				continue
			}
			c := model.ReminderCandidate{
				OrderID:       o.ID,
				InvoiceID:     inv.ID,
				InvoiceNumber: inv.Number,
				CustomerName:  o.CustomerName,
				CustomerEmail: o.CustomerEmail,
				Amount:        inv.Amount,
				DueDate:       inv.DueDate,
			}
			for _, l := range s.reminderLogs {
				if l.OrderID != o.ID || !l.Success {
					continue
				}
				c.RemindersSent++
				if c.LastReminderAt == nil || l.SentAt.After(*c.LastReminderAt) {
					at := l.SentAt
					c.LastReminderAt = &at
				}
			}
			_, c.Paused = s.pauses[o.ID]
			out = append(out, c)
		}
		sort.Slice(out, func(i, j int) bool {
			if !out[i].DueDate.Equal(out[j].DueDate) {
				return out[i].DueDate.Before(out[j].DueDate)
			}
			return out[i].InvoiceID < out[j].InvoiceID
		})
		return nil
	})
	return out, err
}

func (v memReminders) LogAttempt(ctx context.Context, entry *model.ReminderLog) error {
	return v.do("Reminders.LogAttempt", func(s *memState) error {
		entry.ID = s.id()
		s.reminderLogs = append(s.reminderLogs, *entry)
		return nil
	})
}

func (v memReminders) SetPaused(ctx context.Context, orderID int64, paused bool, actorID string) error {
	return v.do("Reminders.SetPaused", func(s *memState) error {
		if paused {
			if _, ok := s.pauses[orderID]; !ok {
				s.pauses[orderID] = actorID
			}
			return nil
		}
		delete(s.pauses, orderID)
		return nil
	})
}

func (v memReminders) IsPaused(ctx context.Context, orderID int64) (bool, error) {
	var paused bool
	err := v.do("Reminders.IsPaused", func(s *memState) error {
		_, paused = s.pauses[orderID]
		return nil
	})
	return paused, err
}

type memSettings struct{ *memView }

func (v memSettings) GetTax(ctx context.Context) (*model.TaxSettings, error) {
	var out *model.TaxSettings
	err := v.do("Settings.GetTax", func(s *memState) error {
		if s.tax != nil {
			c := *s.tax
			c.Rates = maps.Clone(s.tax.Rates)
			out = &c
		}
		return nil
	})
	return out, err
}

func (v memSettings) SaveTax(ctx context.Context, settings model.TaxSettings) error {
	return v.do("Settings.SaveTax", func(s *memState) error {
		settings.Rates = maps.Clone(settings.Rates)
		s.tax = &settings
		return nil
	})
}

func (v memSettings) GetInvoice(ctx context.Context) (*model.InvoiceSettings, error) {
	var out *model.InvoiceSettings
	err := v.do("Settings.GetInvoice", func(s *memState) error {
		if s.invoiceSettings != nil {
			c := *s.invoiceSettings
			out = &c
		}
		return nil
	})
	return out, err
}

func (v memSettings) SaveInvoice(ctx context.Context, settings model.InvoiceSettings) error {
	return v.do("Settings.SaveInvoice", func(s *memState) error {
		s.invoiceSettings = &settings
		return nil
	})
}

func (v memSettings) GetReminder(ctx context.Context) (*model.ReminderSettings, error) {
	var out *model.ReminderSettings
	err := v.do("Settings.GetReminder", func(s *memState) error {
		if s.reminder != nil {
			c := model.ReminderSettings{
				DaysBefore:   slices.Clone(s.reminder.DaysBefore),
				DaysAfter:    slices.Clone(s.reminder.DaysAfter),
				MaxReminders: s.reminder.MaxReminders,
			}
			out = &c
		}
		return nil
	})
	return out, err
}

func (v memSettings) SaveReminder(ctx context.Context, settings model.ReminderSettings) error {
	return v.do("Settings.SaveReminder", func(s *memState) error {
		s.reminder = &model.ReminderSettings{
			DaysBefore:   slices.Clone(settings.DaysBefore),
			DaysAfter:    slices.Clone(settings.DaysAfter),
			MaxReminders: settings.MaxReminders,
		}
		return nil
	})
}

type memWebhookEvents struct{ *memView }

func (v memWebhookEvents) Record(ctx context.Context, event *model.WebhookEvent) (bool, error) {
	var recorded bool
	err := v.do("WebhookEvents.Record", func(s *memState) error {
		if _, ok := s.webhookEvents[event.EventID]; ok {
			return nil
		}
		event.ProcessedAt = v.now()
		s.webhookEvents[event.EventID] = *event
		recorded = true
		return nil
	})
	return recorded, err
}

// users and audit

type memUsers struct{ *memView }

func (v memUsers) Create(ctx context.Context, login, passwordHash string, role model.Role) (*model.StaffUser, error) {
	var out *model.StaffUser
	err := v.do("Users.Create", func(s *memState) error {
		if _, ok := s.users[login]; ok {
			return domainErrors.ErrAlreadyExists
		}
		u := model.StaffUser{ID: s.id(), Login: login, PasswordHash: passwordHash, Role: role, CreatedAt: v.now()}
		s.users[login] = u
		out = &u
		return nil
	})
	return out, err
}

func (v memUsers) GetByLogin(ctx context.Context, login string) (*model.StaffUser, error) {
	var out *model.StaffUser
	err := v.do("Users.GetByLogin", func(s *memState) error {
		u, ok := s.users[login]
		if !ok {
			return domainErrors.NotFoundf("user %q not found", login)
		}
		out = &u
		return nil
	})
	return out, err
}

type memAudit struct{ *memView }

func (v memAudit) Append(ctx context.Context, entry model.AuditEntry) error {
	return v.do("Audit.Append", func(s *memState) error {
		s.audit = append(s.audit, entry)
		return nil
	})
}
