package usecase

import (
	"context"
	"log/slog"
	"strings"

	domainErrors "github.com/polkiloo/orderdesk/internal/domain/errors"
	"github.com/polkiloo/orderdesk/internal/domain/model"
	"github.com/polkiloo/orderdesk/internal/domain/repository"
	"github.com/polkiloo/orderdesk/internal/tax"
)

// NewOrderInput describes an order submitted by staff.
type NewOrderInput struct {
	CustomerName  string        `validate:"required,max=200"`
	CustomerEmail string        `validate:"required,email,max=254"`
	CustomerPhone string        `validate:"max=40"`
	PackageName   string        `validate:"required,max=200"`
	BasePrice     int64         `validate:"gte=0"`
	AddOns        []model.AddOn `validate:"max=50,dive"`
	Jurisdiction  string        `validate:"omitempty,jurisdiction"`
}

// TransitionResult describes an applied status change.
type TransitionResult struct {
	OrderID        int64
	PreviousStatus model.OrderStatus
	NewStatus      model.OrderStatus
}

// BulkFailure reports why one order of a batch was not transitioned.
type BulkFailure struct {
	ID     int64
	Kind   domainErrors.Kind
	Reason string
}

// BulkResult partitions a batch into applied and rejected ids.
type BulkResult struct {
	Succeeded []int64
	Failed    []BulkFailure
}

// StatusOption is a transition target with its display label.
type StatusOption struct {
	Status model.OrderStatus
	Label  string
}

// AllowedTransitionsResult lists the legal next statuses.
type AllowedTransitionsResult struct {
	Status             model.OrderStatus
	AllowedTransitions []StatusOption
	IsTerminal         bool
}

// OrderUseCase applies the order state machine.
type OrderUseCase struct {
	uow    repository.UnitOfWork
	repos  repository.Factory
	audit  *Auditor
	clock  Clock
	logger *slog.Logger
}

// NewOrderUseCase constructs OrderUseCase.
func NewOrderUseCase(uow repository.UnitOfWork, repos repository.Factory, audit *Auditor, clock Clock, logger *slog.Logger) *OrderUseCase {
	return &OrderUseCase{uow: uow, repos: repos, audit: audit, clock: clock, logger: logger}
}

// CreateOrder registers a pending order with derived subtotal and estimated tax.
func (u *OrderUseCase) CreateOrder(ctx context.Context, in NewOrderInput, actor model.Actor) (*model.Order, error) {
	if err := authorize(actor, writerRoles...); err != nil {
		return nil, err
	}
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.CustomerEmail = strings.TrimSpace(in.CustomerEmail)
	in.PackageName = strings.TrimSpace(in.PackageName)
	in.Jurisdiction = tax.NormalizeJurisdiction(in.Jurisdiction)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	subtotal := in.BasePrice
	for _, a := range in.AddOns {
		if a.Amount < 0 || strings.TrimSpace(a.Description) == "" {
			return nil, domainErrors.Validationf("add-ons need a description and a non-negative amount")
		}
		subtotal += a.Amount
	}

	engine, err := loadTaxEngine(ctx, u.repos.Settings())
	if err != nil {
		return nil, err
	}
	if in.Jurisdiction == "" {
		in.Jurisdiction = engine.DefaultJurisdiction()
	}
	breakdown, err := engine.CalculateTax(subtotal, in.Jurisdiction)
	if err != nil {
		return nil, err
	}

	order := &model.Order{
		Status:        model.OrderStatusPending,
		CustomerName:  in.CustomerName,
		CustomerEmail: in.CustomerEmail,
		CustomerPhone: strings.TrimSpace(in.CustomerPhone),
		PackageName:   in.PackageName,
		BasePrice:     in.BasePrice,
		AddOns:        in.AddOns,
		Subtotal:      subtotal,
		TaxAmount:     breakdown.TotalTax,
		TotalAmount:   breakdown.Total,
		Jurisdiction:  in.Jurisdiction,
	}
	if err := u.repos.Orders().Create(ctx, order); err != nil {
		return nil, err
	}

	u.audit.Record(ctx, actor, "order.create", "order", order.ID, map[string]any{"subtotal": subtotal})
	return order, nil
}

// GetOrder returns order by id.
func (u *OrderUseCase) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	return u.repos.Orders().GetByID(ctx, id)
}

// History returns the status trail of an order.
func (u *OrderUseCase) History(ctx context.Context, id int64) ([]model.StatusHistoryEntry, error) {
	if _, err := u.repos.Orders().GetByID(ctx, id); err != nil {
		return nil, err
	}
	return u.repos.History().ListByOrder(ctx, id)
}

// AllowedTransitions is a pure lookup of legal targets for status.
func (u *OrderUseCase) AllowedTransitions(status model.OrderStatus) (AllowedTransitionsResult, error) {
	return AllowedTransitions(status)
}

// OrderTransitions returns legal targets for the current status of an order.
func (u *OrderUseCase) OrderTransitions(ctx context.Context, id int64) (AllowedTransitionsResult, error) {
	order, err := u.repos.Orders().GetByID(ctx, id)
	if err != nil {
		return AllowedTransitionsResult{}, err
	}
	return AllowedTransitions(order.Status)
}

// AllowedTransitions returns targets and labels reachable from status in one step.
func AllowedTransitions(status model.OrderStatus) (AllowedTransitionsResult, error) {
	if !status.Valid() {
		return AllowedTransitionsResult{}, domainErrors.Wrapf(domainErrors.ErrUnknownStatus, "%q", status)
	}
	targets := status.AllowedTargets()
	options := make([]StatusOption, 0, len(targets))
	for _, t := range targets {
		options = append(options, StatusOption{Status: t, Label: t.Label()})
	}
	return AllowedTransitionsResult{Status: status, AllowedTransitions: options, IsTerminal: status.Terminal()}, nil
}

// AttemptTransition moves an order to target and appends history in one
// transaction. Illegal targets fail before any write.
func (u *OrderUseCase) AttemptTransition(ctx context.Context, orderID int64, target model.OrderStatus, actor model.Actor, notes string) (*TransitionResult, error) {
	if err := authorize(actor, writerRoles...); err != nil {
		return nil, err
	}
	if !target.Valid() {
		return nil, domainErrors.Wrapf(domainErrors.ErrUnknownStatus, "%q", target)
	}
	return u.transition(ctx, orderID, target, actor, notes)
}

func (u *OrderUseCase) transition(ctx context.Context, orderID int64, target model.OrderStatus, actor model.Actor, notes string) (*TransitionResult, error) {
	var result *TransitionResult
	err := u.uow.Within(ctx, func(ctx context.Context, tx repository.Tx) error {
		order, err := tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		previous := order.Status
		if err := applyTransition(ctx, tx, order, target, actor, notes, u.clock); err != nil {
			return err
		}
		result = &TransitionResult{OrderID: orderID, PreviousStatus: previous, NewStatus: target}
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.audit.Record(ctx, actor, "order.transition", "order", orderID, map[string]any{
		"from": string(result.PreviousStatus),
		"to":   string(result.NewStatus),
	})
	return result, nil
}

// BulkTransition applies AttemptTransition to every id in its own
// transaction. Repeated ids are processed once.
func (u *OrderUseCase) BulkTransition(ctx context.Context, ids []int64, target model.OrderStatus, actor model.Actor, notes string) (*BulkResult, error) {
	if err := authorize(actor, writerRoles...); err != nil {
		return nil, err
	}
	if !target.Valid() {
		return nil, domainErrors.Wrapf(domainErrors.ErrUnknownStatus, "%q", target)
	}
	if len(ids) == 0 {
		return nil, domainErrors.Validationf("no order ids supplied")
	}

	result := &BulkResult{Succeeded: []int64{}, Failed: []BulkFailure{}}
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		if err := ctx.Err(); err != nil {
			result.Failed = append(result.Failed, BulkFailure{ID: id, Kind: domainErrors.KindInfrastructure, Reason: err.Error()})
			continue
		}
		if _, err := u.transition(ctx, id, target, actor, notes); err != nil {
			u.logger.Info("bulk transition item rejected", slog.Int64("order_id", id), slog.String("error", err.Error()))
			result.Failed = append(result.Failed, BulkFailure{ID: id, Kind: domainErrors.KindOf(err), Reason: err.Error()})
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
	}
	return result, nil
}

// applyTransition validates order.Status -> target against the transition
// table, then updates the order and appends a history entry through tx.
func applyTransition(ctx context.Context, tx repository.Tx, order *model.Order, target model.OrderStatus, actor model.Actor, notes string, clock Clock) error {
	if !order.Status.CanTransitionTo(target) {
		return domainErrors.Wrapf(domainErrors.ErrInvalidTransition, "order %d: %s -> %s", order.ID, order.Status, target)
	}
	if err := tx.Orders().UpdateStatus(ctx, order.ID, target); err != nil {
		return err
	}
	entry := &model.StatusHistoryEntry{
		OrderID:        order.ID,
		PreviousStatus: order.Status,
		NewStatus:      target,
		ActorID:        actor.ID,
		Notes:          notes,
		CreatedAt:      clock.Now(),
	}
	if err := tx.History().Append(ctx, entry); err != nil {
		return err
	}
	order.Status = target
	return nil
}

// walkTo applies every hop of the shortest legal path from the current
// status to target.
func walkTo(ctx context.Context, tx repository.Tx, order *model.Order, target model.OrderStatus, actor model.Actor, notes string, clock Clock) error {
	path := model.TransitionPath(order.Status, target)
	if path == nil {
		return domainErrors.Wrapf(domainErrors.ErrInvalidTransition, "order %d: no path %s -> %s", order.ID, order.Status, target)
	}
	for _, hop := range path {
		if err := applyTransition(ctx, tx, order, hop, actor, notes, clock); err != nil {
			return err
		}
	}
	return nil
}
