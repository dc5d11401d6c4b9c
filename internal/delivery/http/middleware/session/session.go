package http_session_middleware

import (
	"log/slog"
	"net/http"

	http_common "github.com/gatherhub/polls/core/internal/delivery/http/common"
	"github.com/gatherhub/polls/core/internal/model"
	"github.com/gin-gonic/gin"
)

const (
	header     = "X-session-token"
	contextKey = "session_id"
)

// Middleware gates routes that only make sense for an anonymous browser
// session. The token is client-generated and opaque; it is an anonymity
// handle, not a credential, so presence is all that is checked here.
type Middleware struct {
	logger *slog.Logger
}

func New() *Middleware {
	return &Middleware{
		logger: slog.Default(),
	}
}

func (m *Middleware) SessionRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := ctx.GetHeader(header)
		if token == "" {
			m.logger.Error("no " + header + " header")
			ctx.JSON(http.StatusUnauthorized, http_common.ErrorResponse{
				Message: header + " not found",
			})
			ctx.Abort()
			return
		}

		ctx.Set(contextKey, model.SessionID(token))
		ctx.Next()
	}
}

// SessionFromContext returns the session id placed by SessionRequired.
func SessionFromContext(ctx *gin.Context) (model.SessionID, bool) {
	value, ok := ctx.Get(contextKey)
	if !ok {
		return model.EmptySessionID, false
	}
	sessionID, ok := value.(model.SessionID)
	return sessionID, ok
}
