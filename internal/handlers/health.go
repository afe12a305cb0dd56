package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/eventpress/eventpress/pkg/errors"
	"github.com/eventpress/eventpress/pkg/response"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Health returns a status payload useful for readiness checks. When a database pinger is
// supplied an unreachable database turns the response into a 503.
func Health(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			ctx, cancel := context.WithTimeout(requestContext(c), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				response.ErrorWithData(c,
					apperrors.ErrServiceUnavailable.WithMessage("database unreachable").WithInternal(err),
					gin.H{"status": "degraded", "database": "unreachable"},
				)
				return
			}
		}
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	}
}
