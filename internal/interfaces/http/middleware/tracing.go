package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// MaxRequestIDLength caps request ids read from headers so oversized values
// never reach trace attributes.
const MaxRequestIDLength = 128

// Tracing returns OpenTelemetry tracing middleware. It starts a server span
// per request, continuing any inbound W3C trace context from the caller.
func Tracing(serviceName string) gin.HandlerFunc {
	baseMiddleware := otelgin.Middleware(serviceName)

	return func(c *gin.Context) {
		baseMiddleware(c)

		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			enrichSpan(c, span)
		}
	}
}

// TracingAttributes enriches the active span with the request id and the
// authenticated caseworker identity. Place it after both Tracing and the JWT
// middleware so the claims are available.
func TracingAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			enrichSpan(c, span)
		}
		c.Next()
	}
}

func enrichSpan(c *gin.Context, span trace.Span) {
	if requestID := tracedRequestID(c); requestID != "" {
		span.SetAttributes(attribute.String("request_id", requestID))
	}
	if ident := GetJWTIdent(c); ident != "" {
		span.SetAttributes(attribute.String("ident", ident))
	}
}

// tracedRequestID reads the request id set by the RequestID middleware, with
// a length-capped header fallback for requests that bypassed it
func tracedRequestID(c *gin.Context) string {
	if requestID, exists := c.Get("request_id"); exists {
		if id, ok := requestID.(string); ok && id != "" {
			return id
		}
	}

	headerID := c.GetHeader(RequestIDHeader)
	if len(headerID) > MaxRequestIDLength {
		return headerID[:MaxRequestIDLength]
	}
	return headerID
}
