package httpserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/docgate/internal/logging"
	"github.com/dmitrijs2005/docgate/internal/server/auth"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	principalContextKey = "principal"
	requestIDHeader     = "X-Request-ID"
)

// RequestObserver receives one call per served request.
type RequestObserver interface {
	ObserveRequest(method, route string, code int, elapsed time.Duration)
}

func PrincipalFromContext(c *gin.Context) (*auth.Principal, bool) {
	v, ok := c.Get(principalContextKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*auth.Principal)
	return p, ok && p != nil
}

// RequireAuth accepts "Authorization: Bearer <host token>" and stores the
// principal on the context.
func RequireAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
			return
		}

		p, err := auth.ParseToken(strings.TrimSpace(parts[1]), secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
			return
		}

		c.Set(principalContextKey, p)
		c.Next()
	}
}

// Allow runs the permission gate for op against the asset in the path.
func Allow(gate auth.Gate, op auth.Operation) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, _ := PrincipalFromContext(c)
		if err := gate.Allow(c.Request.Context(), p, op, scopeFromPath(c)); err != nil {
			status, msg := hostError(err)
			c.AbortWithStatusJSON(status, gin.H{"error": msg})
			return
		}
		c.Next()
	}
}

// RequestLogger logs every request through logger and reports it to obs,
// which may be nil. It also assigns a request id when the caller sent none.
func RequestLogger(logger logging.Logger, obs RequestObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)

		c.Next()

		elapsed := time.Since(start)
		route := c.FullPath()
		status := c.Writer.Status()
		if obs != nil {
			obs.ObserveRequest(c.Request.Method, route, status, elapsed)
		}

		args := []any{
			"request_id", id,
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"duration", elapsed,
		}
		if len(c.Errors) > 0 {
			args = append(args, "error", c.Errors.String())
		}

		switch {
		case status >= http.StatusInternalServerError:
			logger.Error(c.Request.Context(), "request failed", args...)
		case route == "/health" || route == "/metrics":
			logger.Debug(c.Request.Context(), "request served", args...)
		default:
			logger.Info(c.Request.Context(), "request served", args...)
		}
	}
}
