package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"

	domainErrors "github.com/polkiloo/orderdesk/internal/domain/errors"
	"github.com/polkiloo/orderdesk/internal/domain/model"
)

type userRepository struct {
	q querier
}

type auditRepository struct {
	q querier
}

func (r *userRepository) Create(ctx context.Context, login, passwordHash string, role model.Role) (*model.StaffUser, error) {
	const query = `INSERT INTO staff_users (login, password_hash, role) VALUES ($1, $2, $3) RETURNING id, created_at`
	var u model.StaffUser
	err := r.q.QueryRow(ctx, query, login, passwordHash, role).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domainErrors.ErrAlreadyExists
		}
		return nil, dbError(err, "insert staff user")
	}
	u.Login = login
	u.PasswordHash = passwordHash
	u.Role = role
	return &u, nil
}

func (r *userRepository) GetByLogin(ctx context.Context, login string) (*model.StaffUser, error) {
	const query = `SELECT id, login, password_hash, role, created_at FROM staff_users WHERE login=$1`
	var u model.StaffUser
	err := r.q.QueryRow(ctx, query, login).Scan(&u.ID, &u.Login, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.NotFoundf("user %q not found", login)
		}
		return nil, dbError(err, "select staff user")
	}
	return &u, nil
}

func (r *auditRepository) Append(ctx context.Context, entry model.AuditEntry) error {
	details := entry.Details
	if details == nil {
		details = map[string]any{}
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return err
	}
	const query = `INSERT INTO audit_log (actor_id, action, entity, entity_id, details, created_at)
                   VALUES ($1, $2, $3, $4, $5, $6)`
	_, err = r.q.Exec(ctx, query, entry.ActorID, entry.Action, entry.Entity, entry.EntityID, string(raw), entry.At)
	return dbError(err, "insert audit entry")
}
