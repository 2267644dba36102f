package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"marketsauce-agent/internal/shared/metrics"
	"marketsauce-agent/internal/shared/server/respond"
	"marketsauce-agent/internal/shared/telemetry"
)

// Recovery turns handler panics into the standard 500 envelope. When the
// handler already started writing, the connection is only aborted.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			metrics.IncPanic("http")
			fields := map[string]any{
				"request_id": RequestIDFromContext(c),
				"route":      c.FullPath(),
				"method":     c.Request.Method,
				"error":      rec,
				"stack":      string(debug.Stack()),
			}
			if jobID, ok := c.Get(JobIDKey); ok {
				fields["job_id"] = jobID
			}
			telemetry.Error("http.panic", fields)

			if c.Writer.Written() {
				c.Abort()
				return
			}
			respond.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		}()
		c.Next()
	}
}
