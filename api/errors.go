package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/semanticallynull/carpool-backend/internal/apperr"
	"github.com/semanticallynull/carpool-backend/internal/middleware"
)

// respondError writes err as {"code","message"}. Errors that are not
// classified are logged with msg and reported as a 500.
func (a *API) respondError(c *gin.Context, err error, msg string) {
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Kind != apperr.Internal {
		c.JSON(ae.Kind.Status(), gin.H{"code": ae.Code, "message": ae.Message})
		return
	}

	middleware.GetLogger(c).ErrorContext(c, msg, "error", err)
	message := "Internal server error"
	if a.dev {
		message = err.Error()
	}
	c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL_ERROR", "message": message})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": message})
}

// invalidBody rejects a request body that failed to bind. The binder's
// detail names Go types, so it is only logged.
func invalidBody(c *gin.Context, err error) {
	middleware.GetLogger(c).DebugContext(c, "invalid request body", "error", err)
	badRequest(c, "Invalid request body")
}

// caller returns the identity set by the auth chain. Routes that use it are
// always behind that chain, so a miss means the router is misconfigured.
func caller(c *gin.Context) (middleware.Identity, bool) {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHORIZED", "message": "Authentication required"})
	}
	return id, ok
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "Invalid "+name)
		return uuid.UUID{}, false
	}
	return id, true
}
