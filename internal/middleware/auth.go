package middleware

import (
	"net/http"
	"strings"
	"time"

	"taxtracker/internal/session"
	"taxtracker/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Context keys set by RequireSession
const (
	ContextUserID        = "userID"
	ContextTaxpayerClass = "taxpayerClass"
)

// RequireSession rejects requests unless the session holds a user id and a
// live token. An expired token ends the session. Requests that change state
// must carry the session token as a bearer Authorization header; reads may
// omit it, which trusts any local caller able to reach the listener.
func RequireSession(store *session.Store, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return requireSession(store, log, time.Now)
}

func requireSession(store *session.Store, log *zap.Logger, now func() time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := store.Identity()
		if !identity.Authenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Please log in to continue"))
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" && !safeMethod(c.Request.Method) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization header required"))
			return
		}
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid authorization format. Expected 'Bearer <token>'"))
				return
			}
			if parts[1] != identity.AuthToken {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Token does not belong to the active session"))
				return
			}
		}

		if session.TokenExpired(identity.AuthToken, now()) {
			if err := store.ClearIdentity(); err != nil {
				log.Warn("failed to clear expired session", zap.Error(err))
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Session expired. Please login again."))
			return
		}

		c.Set(ContextUserID, identity.UserID)
		c.Set(ContextTaxpayerClass, identity.TaxpayerClass.String())
		c.Next()
	}
}

func safeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}
