package usecase

import (
	"context"
	"log/slog"

	"github.com/polkiloo/orderdesk/internal/domain/model"
	"github.com/polkiloo/orderdesk/internal/domain/repository"
)

// Auditor appends best-effort audit entries. A failing sink is logged and
// never fails the operation being audited.
type Auditor struct {
	repo   repository.AuditRepository
	clock  Clock
	logger *slog.Logger
}

// NewAuditor constructs Auditor over the pool-bound audit repository.
func NewAuditor(repos repository.Factory, clock Clock, logger *slog.Logger) *Auditor {
	return &Auditor{repo: repos.Audit(), clock: clock, logger: logger}
}

// Record stores one audit entry.
func (a *Auditor) Record(ctx context.Context, actor model.Actor, action, entity string, entityID int64, details map[string]any) {
	if a == nil || a.repo == nil {
		return
	}
	entry := model.AuditEntry{
		ActorID:  actor.ID,
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Details:  details,
		At:       a.clock.Now(),
	}
	if err := a.repo.Append(context.WithoutCancel(ctx), entry); err != nil && a.logger != nil {
		a.logger.Warn("audit append failed",
			slog.String("action", action),
			slog.Int64("entity_id", entityID),
			slog.String("error", err.Error()),
		)
	}
}
