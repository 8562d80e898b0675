package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/booking-api/pkg/errors"
	"github.com/jwalitptl/booking-api/pkg/httputil"
	"github.com/jwalitptl/booking-api/pkg/logger"
)

// ErrorHandler logs errors attached to the context and answers for handlers
// that recorded an error without writing a response.
func ErrorHandler(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		l := log.WithContext(c.Request.Context())
		for _, e := range c.Errors {
			if errors.CodeOf(e.Err) == errors.ErrInternal || errors.CodeOf(e.Err) == errors.ErrPersistence {
				l.Error(e.Err, "Request error", "path", c.Request.URL.Path, "method", c.Request.Method)
			} else {
				l.Debug("Request rejected", "error", e.Err.Error(), "path", c.Request.URL.Path)
			}
		}

		if !c.Writer.Written() {
			httputil.RespondWithError(c, c.Errors.Last().Err)
		}
	}
}
