package usecase

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	domainErrors "github.com/polkiloo/orderdesk/internal/domain/errors"
	"github.com/polkiloo/orderdesk/internal/domain/model"
	"github.com/polkiloo/orderdesk/internal/domain/repository"
	"github.com/polkiloo/orderdesk/internal/tax"
)

const (
	defaultInvoicePrefix = "INV-"
	defaultPaymentTerms  = 30
	maxPaymentTerms      = 365
	maxReminderOffset    = 365
	maxPrefixLength      = 16
)

// DefaultInvoiceSettings is used until an administrator saves invoice settings.
func DefaultInvoiceSettings() model.InvoiceSettings {
	return model.InvoiceSettings{NumberPrefix: defaultInvoicePrefix, PaymentTermsDays: defaultPaymentTerms}
}

// DefaultReminderSettings is used until an administrator saves reminder settings.
func DefaultReminderSettings() model.ReminderSettings {
	return model.ReminderSettings{DaysBefore: []int{1, 3}, DaysAfter: []int{1, 7, 14}, MaxReminders: 4}
}

// SettingsUseCase reads and writes the typed configuration aggregates.
type SettingsUseCase struct {
	uow      repository.UnitOfWork
	settings repository.SettingsRepository
	audit    *Auditor
	logger   *slog.Logger
}

// NewSettingsUseCase constructs SettingsUseCase.
func NewSettingsUseCase(uow repository.UnitOfWork, repos repository.Factory, audit *Auditor, logger *slog.Logger) *SettingsUseCase {
	return &SettingsUseCase{uow: uow, settings: repos.Settings(), audit: audit, logger: logger}
}

// Tax returns the effective tax configuration: built-in rates overlaid with
// stored overrides.
func (u *SettingsUseCase) Tax(ctx context.Context) (model.TaxSettings, error) {
	engine, err := loadTaxEngine(ctx, u.settings)
	if err != nil {
		return model.TaxSettings{}, err
	}
	out := model.TaxSettings{DefaultJurisdiction: engine.DefaultJurisdiction(), Rates: map[string]model.TaxRates{}}
	for _, code := range engine.Jurisdictions() {
		_, r := engine.Rates(code)
		out.Rates[code] = r
	}
	return out, nil
}

// SaveTax validates and replaces tax overrides in one transaction.
func (u *SettingsUseCase) SaveTax(ctx context.Context, settings model.TaxSettings, actor model.Actor) (model.TaxSettings, error) {
	if err := authorize(actor, adminRoles...); err != nil {
		return model.TaxSettings{}, err
	}
	normalized := model.TaxSettings{
		DefaultJurisdiction: tax.NormalizeJurisdiction(settings.DefaultJurisdiction),
		Rates:               make(map[string]model.TaxRates, len(settings.Rates)),
	}
	if normalized.DefaultJurisdiction == "" {
		normalized.DefaultJurisdiction = tax.DefaultJurisdiction
	}
	for code, r := range settings.Rates {
		normalized.Rates[tax.NormalizeJurisdiction(code)] = r
	}
	if _, err := tax.NewEngine(normalized); err != nil {
		return model.TaxSettings{}, err
	}
	err := u.uow.Within(ctx, func(ctx context.Context, tx repository.Tx) error {
		return tx.Settings().SaveTax(ctx, normalized)
	})
	if err != nil {
		return model.TaxSettings{}, err
	}
	u.audit.Record(ctx, actor, "settings.tax.update", "settings", 0, map[string]any{
		"default_jurisdiction": normalized.DefaultJurisdiction,
		"overrides":            len(normalized.Rates),
	})
	return u.Tax(ctx)
}

// Invoice returns stored invoice settings or defaults.
func (u *SettingsUseCase) Invoice(ctx context.Context) (model.InvoiceSettings, error) {
	return loadInvoiceSettings(ctx, u.settings)
}

// SaveInvoice validates and stores invoice settings.
func (u *SettingsUseCase) SaveInvoice(ctx context.Context, settings model.InvoiceSettings, actor model.Actor) (model.InvoiceSettings, error) {
	if err := authorize(actor, adminRoles...); err != nil {
		return model.InvoiceSettings{}, err
	}
	normalized, err := NormalizeInvoiceSettings(settings)
	if err != nil {
		return model.InvoiceSettings{}, err
	}
	if err := u.settings.SaveInvoice(ctx, normalized); err != nil {
		return model.InvoiceSettings{}, err
	}
	u.audit.Record(ctx, actor, "settings.invoice.update", "settings", 0, map[string]any{
		"prefix":         normalized.NumberPrefix,
		"terms":          normalized.PaymentTermsDays,
		"send_on_create": normalized.SendOnCreate,
	})
	return normalized, nil
}

// Reminder returns stored reminder settings or defaults.
func (u *SettingsUseCase) Reminder(ctx context.Context) (model.ReminderSettings, error) {
	return loadReminderSettings(ctx, u.settings)
}

// SaveReminder validates and stores reminder settings.
func (u *SettingsUseCase) SaveReminder(ctx context.Context, settings model.ReminderSettings, actor model.Actor) (model.ReminderSettings, error) {
	if err := authorize(actor, adminRoles...); err != nil {
		return model.ReminderSettings{}, err
	}
	normalized, err := NormalizeReminderSettings(settings)
	if err != nil {
		return model.ReminderSettings{}, err
	}
	if err := u.settings.SaveReminder(ctx, normalized); err != nil {
		return model.ReminderSettings{}, err
	}
	u.audit.Record(ctx, actor, "settings.reminder.update", "settings", 0, map[string]any{
		"days_before":   normalized.DaysBefore,
		"days_after":    normalized.DaysAfter,
		"max_reminders": normalized.MaxReminders,
	})
	return normalized, nil
}

// TaxEngine builds an engine from the stored tax settings.
func (u *SettingsUseCase) TaxEngine(ctx context.Context) (*tax.Engine, error) {
	return loadTaxEngine(ctx, u.settings)
}

// NormalizeInvoiceSettings trims the prefix and checks bounds.
func NormalizeInvoiceSettings(s model.InvoiceSettings) (model.InvoiceSettings, error) {
	s.NumberPrefix = strings.TrimSpace(s.NumberPrefix)
	if len(s.NumberPrefix) > maxPrefixLength {
		return s, domainErrors.Validationf("invoice number prefix must be at most %d characters", maxPrefixLength)
	}
	if s.PaymentTermsDays < 0 || s.PaymentTermsDays > maxPaymentTerms {
		return s, domainErrors.Validationf("payment terms must be between 0 and %d days", maxPaymentTerms)
	}
	return s, nil
}

// NormalizeReminderSettings sorts and deduplicates offsets. Offsets must be
// positive and MaxReminders at least one.
func NormalizeReminderSettings(s model.ReminderSettings) (model.ReminderSettings, error) {
	before, err := normalizeOffsets("days_before", s.DaysBefore)
	if err != nil {
		return s, err
	}
	after, err := normalizeOffsets("days_after", s.DaysAfter)
	if err != nil {
		return s, err
	}
	if s.MaxReminders < 1 {
		return s, domainErrors.Validationf("max_reminders must be at least 1")
	}
	return model.ReminderSettings{DaysBefore: before, DaysAfter: after, MaxReminders: s.MaxReminders}, nil
}

func normalizeOffsets(name string, offsets []int) ([]int, error) {
	out := make([]int, 0, len(offsets))
	for _, d := range offsets {
		if d < 1 || d > maxReminderOffset {
			return nil, domainErrors.Validationf("%s offsets must be between 1 and %d, got %d", name, maxReminderOffset, d)
		}
		out = append(out, d)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

func loadTaxEngine(ctx context.Context, repo repository.SettingsRepository) (*tax.Engine, error) {
	stored, err := repo.GetTax(ctx)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return tax.Default(), nil
	}
	return tax.NewEngine(*stored)
}

func loadInvoiceSettings(ctx context.Context, repo repository.SettingsRepository) (model.InvoiceSettings, error) {
	stored, err := repo.GetInvoice(ctx)
	if err != nil {
		return model.InvoiceSettings{}, err
	}
	if stored == nil {
		return DefaultInvoiceSettings(), nil
	}
	return *stored, nil
}

func loadReminderSettings(ctx context.Context, repo repository.SettingsRepository) (model.ReminderSettings, error) {
	stored, err := repo.GetReminder(ctx)
	if err != nil {
		return model.ReminderSettings{}, err
	}
	if stored == nil {
		return DefaultReminderSettings(), nil
	}
	return *stored, nil
}
