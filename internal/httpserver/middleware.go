package httpserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/nao1215/humanizer/internal/observability"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-Id"

const requestIDKey = "request_id"

// requestID tags the request with the client's X-Request-Id when it is a
// UUID, or a fresh one otherwise.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// RequestID returns the id assigned by the request id middleware, or "".
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// tracing starts one span per request named after the matched route.
func tracing() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		ctx, span := observability.StartSpan(c.Request.Context(),
			fmt.Sprintf("HTTP %s %s", c.Request.Method, route),
			attribute.String("http.request.method", c.Request.Method),
			attribute.String("http.route", route),
			attribute.String("humanizer.request.id", RequestID(c)),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		if status >= http.StatusInternalServerError && len(c.Errors) > 0 {
			observability.RecordError(span, c.Errors.Last().Err)
		}
	}
}

// requestLogger logs one line per request. Client errors log at warn and
// server errors at error.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
			"request_id", RequestID(c),
		}
		if traceID := observability.TraceID(c.Request.Context()); traceID != "" {
			attrs = append(attrs, "trace_id", traceID)
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "error", c.Errors.Last().Err)
		}

		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("request failed", attrs...)
		case status >= http.StatusBadRequest:
			logger.Warn("request rejected", attrs...)
		default:
			logger.Info("request completed", attrs...)
		}
	}
}

// recovery turns a panic into a 500 with the uniform error body.
func recovery(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, rec any) {
		logger.Error("panic recovered", "panic", rec, "request_id", RequestID(c))
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
			Error:     http.StatusText(http.StatusInternalServerError),
			Kind:      kindInternal,
			RequestID: RequestID(c),
		})
	})
}
