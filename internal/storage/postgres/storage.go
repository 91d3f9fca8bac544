package postgres

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/polkiloo/orderdesk/internal/domain/errors"
	"github.com/polkiloo/orderdesk/internal/domain/repository"
)

const (
	pgErrUniqueViolation        = "23505"
	pgErrSerializationFailure   = "40001"
	pgErrDeadlockDetected       = "40P01"
	defaultMaxRetries           = 3
	defaultRetryBase            = 100 * time.Millisecond
	healthCheckTimeout          = 2 * time.Second
	statementTimeoutRuntimeName = "statement_timeout"
)

// pgxPool is the subset of *pgxpool.Pool used by Storage.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// querier is satisfied by both the pool and an open transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var newPgxPool = func(ctx context.Context, cfg *pgxpool.Config) (pgxPool, error) {
	return pgxpool.NewWithConfig(ctx, cfg)
}

// Options configures the storage.
type Options struct {
	DSN              string
	StatementTimeout time.Duration
	AutoMigrate      bool
}

// Storage acts as repository facade backed by PostgreSQL.
type Storage struct {
	pool       pgxPool
	logger     *slog.Logger
	caps       Capabilities
	maxRetries int
	retryBase  time.Duration
}

// New connects to the database, applies migrations when enabled and
// resolves schema capabilities once.
func New(ctx context.Context, opts Options, logger *slog.Logger) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if opts.StatementTimeout > 0 {
		cfg.ConnConfig.RuntimeParams[statementTimeoutRuntimeName] = strconv.FormatInt(opts.StatementTimeout.Milliseconds(), 10)
	}

	pool, err := newPgxPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	storage := &Storage{
		pool:       pool,
		logger:     logger,
		maxRetries: defaultMaxRetries,
		retryBase:  defaultRetryBase,
	}
	if opts.AutoMigrate {
		if err := storage.migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
	}
	caps, err := storage.loadCapabilities(ctx)
	if err != nil {
		pool.Close()
		return nil, err
	}
	storage.caps = caps
	logger.Info("storage ready", slog.Int("schema_version", caps.SchemaVersion), slog.Bool("webhook_ledger", caps.WebhookLedger))

	return storage, nil
}

// Close releases database resources.
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Capabilities reports schema features detected at startup.
func (s *Storage) Capabilities() Capabilities {
	return s.caps
}

// Factory methods for pool-bound repositories.
func (s *Storage) Orders() repository.OrderRepository { return &orderRepository{q: s.pool} }

func (s *Storage) History() repository.HistoryRepository { return &historyRepository{q: s.pool} }

func (s *Storage) Invoices() repository.InvoiceRepository { return &invoiceRepository{q: s.pool} }

func (s *Storage) Payments() repository.PaymentRepository { return &paymentRepository{q: s.pool} }

func (s *Storage) Reminders() repository.ReminderRepository { return &reminderRepository{q: s.pool} }

func (s *Storage) Settings() repository.SettingsRepository { return &settingsRepository{q: s.pool} }

func (s *Storage) WebhookEvents() repository.WebhookEventRepository {
	return &webhookEventRepository{q: s.pool, enabled: s.caps.WebhookLedger}
}

func (s *Storage) Users() repository.UserRepository { return &userRepository{q: s.pool} }

func (s *Storage) Audit() repository.AuditRepository { return &auditRepository{q: s.pool} }

// txScope exposes repositories bound to one transaction.
type txScope struct {
	tx      pgx.Tx
	storage *Storage
}

func (t *txScope) Orders() repository.OrderRepository { return &orderRepository{q: t.tx} }

func (t *txScope) History() repository.HistoryRepository { return &historyRepository{q: t.tx} }

func (t *txScope) Invoices() repository.InvoiceRepository { return &invoiceRepository{q: t.tx} }

func (t *txScope) Payments() repository.PaymentRepository { return &paymentRepository{q: t.tx} }

func (t *txScope) Reminders() repository.ReminderRepository { return &reminderRepository{q: t.tx} }

func (t *txScope) Settings() repository.SettingsRepository { return &settingsRepository{q: t.tx} }

func (t *txScope) WebhookEvents() repository.WebhookEventRepository {
	return &webhookEventRepository{q: t.tx, enabled: t.storage.caps.WebhookLedger}
}

// Within implements repository.UnitOfWork.
func (s *Storage) Within(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	return s.WithinTransaction(ctx, func(tx pgx.Tx) error {
		return fn(ctx, &txScope{tx: tx, storage: s})
	})
}

// WithinTransaction executes fn inside a read committed transaction. The
// whole transaction is replayed on serialization failures and deadlocks.
func (s *Storage) WithinTransaction(ctx context.Context, fn func(pgx.Tx) error) error {
	var err error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		err = s.runOnce(ctx, fn)
		if err == nil || !isRetryable(err) || attempt == s.maxRetries {
			break
		}

		wait := backoff(attempt, s.retryBase)
		s.logger.Warn("retrying transaction",
			slog.Int("attempt", attempt+1),
			slog.Int64("wait_ms", wait.Milliseconds()),
			slog.String("error", err.Error()))

		select {
		case <-ctx.Done():
			return domainErrors.Infrastructure(ctx.Err(), "transaction retry")
		case <-time.After(wait):
		}
	}
	if err != nil && isRetryable(err) {
		return domainErrors.Infrastructure(err, "transaction failed after retries")
	}
	return err
}

func (s *Storage) runOnce(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return domainErrors.Infrastructure(err, "begin transaction")
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				s.logger.Warn("rollback failed", slog.String("error", rbErr.Error()))
			}
			return
		}
		if cErr := tx.Commit(ctx); cErr != nil {
			err = domainErrors.Infrastructure(cErr, "commit transaction")
		}
	}()

	err = fn(tx)
	return err
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgErrSerializationFailure || pgErr.Code == pgErrDeadlockDetected
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation
}

func backoff(attempt int, base time.Duration) time.Duration {
	wait := time.Duration(1<<attempt) * base
	return wait + time.Duration(randInt63n(int64(wait/5)))
}

func randInt63n(n int64) int64 {
	if n <= 0 {
		return 0
	}
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0
	}
	return int64(binary.BigEndian.Uint64(buf[:])&0x7FFFFFFFFFFFFFFF) % n
}

// dbError classifies a driver error. Domain errors pass through untouched.
func dbError(err error, op string) error {
	if err == nil {
		return nil
	}
	if domainErrors.KindOf(err) != domainErrors.KindInfrastructure {
		return err
	}
	return domainErrors.Infrastructure(err, op)
}

// HealthCheck verifies database connectivity.
func (s *Storage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	return s.pool.Ping(ctx)
}

// Logger returns storage logger.
func (s *Storage) Logger() *slog.Logger {
	return s.logger
}
