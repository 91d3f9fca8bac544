package usecase

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	domainErrors "github.com/polkiloo/orderdesk/internal/domain/errors"
	"github.com/polkiloo/orderdesk/internal/domain/model"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("jurisdiction", func(fl validator.FieldLevel) bool {
		return ValidateJurisdiction(fl.Field().String())
	})
	return v
}

// validateInput runs struct tag validation and converts failures into a
// validation error listing every offending field.
func validateInput(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return domainErrors.Validationf("invalid input: %v", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return domainErrors.Validationf("%s", strings.Join(msgs, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email", fe.Field())
	case "jurisdiction":
		return fmt.Sprintf("%s must be a 2-letter region code", fe.Field())
	default:
		return fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag())
	}
}

// ValidateJurisdiction checks that code is a 2-letter region code.
func ValidateJurisdiction(code string) bool {
	if len(code) != 2 {
		return false
	}
	for _, r := range code {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return false
		}
	}
	return true
}

// ParseOrderStatus validates a raw status value.
func ParseOrderStatus(raw string) (model.OrderStatus, error) {
	status := model.OrderStatus(strings.TrimSpace(raw))
	if !status.Valid() {
		return "", domainErrors.Wrapf(domainErrors.ErrUnknownStatus, "%q", raw)
	}
	return status, nil
}

func authorize(actor model.Actor, roles ...model.Role) error {
	for _, r := range roles {
		if actor.Role == r {
			return nil
		}
	}
	return domainErrors.Forbiddenf("role %q may not perform this action", actor.Role)
}

var (
	writerRoles = []model.Role{model.RoleAdmin, model.RoleStaff}
	adminRoles  = []model.Role{model.RoleAdmin}
)

// RequireWriter returns a forbidden error unless actor may mutate state.
func RequireWriter(actor model.Actor) error {
	return authorize(actor, writerRoles...)
}
