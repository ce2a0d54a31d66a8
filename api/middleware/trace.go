package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TraceHeader is the request header that carries a trace ID end to end.
// Dashboards that originate one keep it; everything else gets one minted
// here, so decision events and access log lines can always be correlated.
const TraceHeader = "X-Trace-ID"

const traceKey = "trace_id"

func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(TraceHeader)
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(traceKey, id)
		c.Writer.Header().Set(TraceHeader, id)

		c.Next()
	}
}

// GetTraceID returns the request's trace ID, or "" outside the Trace
// middleware.
func GetTraceID(c *gin.Context) string {
	v, ok := c.Get(traceKey)
	if !ok {
		return ""
	}
	id, _ := v.(string)
	return id
}
