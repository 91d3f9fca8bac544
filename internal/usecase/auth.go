package usecase

import (
	"context"
	"strconv"
	"strings"

	domainErrors "github.com/polkiloo/orderdesk/internal/domain/errors"
	"github.com/polkiloo/orderdesk/internal/domain/model"
	"github.com/polkiloo/orderdesk/internal/domain/repository"
	pkgAuth "github.com/polkiloo/orderdesk/internal/pkg/auth"
)

// AuthUseCase handles staff credentials and token management.
type AuthUseCase struct {
	users  repository.UserRepository
	hasher pkgAuth.PasswordHasher
	tokens pkgAuth.Strategy
	audit  *Auditor
}

// NewAuthUseCase constructs AuthUseCase.
func NewAuthUseCase(repos repository.Factory, hasher pkgAuth.PasswordHasher, strategy pkgAuth.Strategy, audit *Auditor) *AuthUseCase {
	return &AuthUseCase{users: repos.Users(), hasher: hasher, tokens: strategy, audit: audit}
}

// Authenticate validates credentials and returns a bearer token.
func (u *AuthUseCase) Authenticate(ctx context.Context, login, password string) (model.Actor, string, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return model.Actor{}, "", domainErrors.ErrInvalidCredentials
	}

	usr, err := u.users.GetByLogin(ctx, login)
	if err != nil {
		if domainErrors.KindOf(err) == domainErrors.KindNotFound {
			return model.Actor{}, "", domainErrors.ErrInvalidCredentials
		}
		return model.Actor{}, "", err
	}

	if err := u.hasher.Compare(usr.PasswordHash, password); err != nil {
		return model.Actor{}, "", domainErrors.ErrInvalidCredentials
	}

	actor := model.Actor{ID: strconv.FormatInt(usr.ID, 10), Role: usr.Role}
	token, err := u.tokens.IssueToken(actor)
	if err != nil {
		return model.Actor{}, "", err
	}
	return actor, token, nil
}

// ParseToken extracts the actor from provided token.
func (u *AuthUseCase) ParseToken(token string) (model.Actor, error) {
	if token == "" {
		return model.Actor{}, pkgAuth.ErrInvalidToken
	}
	return u.tokens.ParseToken(token)
}

// CreateUser registers a staff account. Requires the admin role.
func (u *AuthUseCase) CreateUser(ctx context.Context, login, password string, role model.Role, actor model.Actor) (*model.StaffUser, error) {
	if err := authorize(actor, adminRoles...); err != nil {
		return nil, err
	}
	switch role {
	case model.RoleAdmin, model.RoleStaff, model.RoleViewer:
	default:
		return nil, domainErrors.Validationf("unknown role %q", role)
	}
	login = strings.TrimSpace(login)
	if login == "" {
		return nil, domainErrors.Validationf("login is required")
	}

	hash, err := u.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	usr, err := u.users.Create(ctx, login, hash, role)
	if err != nil {
		return nil, err
	}
	u.audit.Record(ctx, actor, "user.create", "staff_user", usr.ID, map[string]any{"login": login, "role": string(role)})
	return usr, nil
}

// EnsureAdmin creates the bootstrap administrator when it does not exist.
// An empty login disables bootstrapping.
func (u *AuthUseCase) EnsureAdmin(ctx context.Context, login, password string) (bool, error) {
	login = strings.TrimSpace(login)
	if login == "" {
		return false, nil
	}
	if _, err := u.users.GetByLogin(ctx, login); err == nil {
		return false, nil
	} else if domainErrors.KindOf(err) != domainErrors.KindNotFound {
		return false, err
	}

	hash, err := u.hasher.Hash(password)
	if err != nil {
		return false, err
	}
	if _, err := u.users.Create(ctx, login, hash, model.RoleAdmin); err != nil {
		if domainErrors.Is(err, domainErrors.ErrAlreadyExists) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
