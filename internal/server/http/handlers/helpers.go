package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/orderdesk/internal/domain/errors"
	"github.com/polkiloo/orderdesk/internal/domain/model"
	"github.com/polkiloo/orderdesk/internal/server/http/dto"
	"github.com/polkiloo/orderdesk/internal/server/http/middleware"
)

// CurrentActor extracts the authenticated actor from context.
func CurrentActor(c *gin.Context) model.Actor {
	val, ok := c.Get(middleware.ActorContextKey)
	if !ok {
		return model.Actor{}
	}
	actor, _ := val.(model.Actor)
	return actor
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind domainErrors.Kind) int {
	switch kind {
	case domainErrors.KindValidation:
		return http.StatusBadRequest
	case domainErrors.KindConflict:
		return http.StatusConflict
	case domainErrors.KindNotFound:
		return http.StatusNotFound
	case domainErrors.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusServiceUnavailable
	}
}

// writeError renders err as the standard error body. Infrastructure details
// are attached to the gin context for the request logger and not echoed.
func writeError(c *gin.Context, err error) {
	kind := domainErrors.KindOf(err)
	message := err.Error()
	if kind == domainErrors.KindInfrastructure {
		_ = c.Error(err)
		message = "service temporarily unavailable"
	}
	c.AbortWithStatusJSON(StatusFor(kind), dto.ErrorResponse{
		Error: dto.ErrorBody{Kind: string(kind), Message: message},
	})
}

func badRequest(c *gin.Context, err error) {
	writeError(c, domainErrors.Validationf("malformed request: %v", err))
}

// pathID parses a positive integer path parameter.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		writeError(c, domainErrors.Validationf("invalid %s %q", name, c.Param(name)))
		return 0, false
	}
	return id, true
}

// bindOptionalJSON decodes the body when one is present.
func bindOptionalJSON(c *gin.Context, dst any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		badRequest(c, err)
		return false
	}
	return true
}
