package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/fieldsales-backend/internal/platform/ctxutil"
	"github.com/yungbote/fieldsales-backend/internal/platform/logger"
)

// RequestLogger writes one line per request once the handler chain is done.
// Handler errors recorded with c.Error are attached.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		fields := append([]interface{}{
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"bytes_out", c.Writer.Size(),
		}, ctxutil.LogFields(c.Request.Context())...)
		if n := c.Request.ContentLength; n > 0 {
			fields = append(fields, "bytes_in", n)
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate); len(errs) > 0 {
			fields = append(fields, "errors", errs.String())
		}

		reqLog := log.With(fields...)
		switch {
		case status >= 500:
			reqLog.Error("Request failed")
		case status >= 400:
			reqLog.Warn("Request rejected")
		default:
			reqLog.Info("Request served")
		}
	}
}
