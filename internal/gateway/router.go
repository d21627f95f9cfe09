// internal/gateway/router.go
package gateway

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the gateway routes. The rate limiter guards only the
// submission route; reads and probes stay unthrottled.
func NewRouter(h *Handlers, limiter *RateLimiter) *gin.Engine {
	r := gin.Default()

	r.GET("/", h.Index)
	r.GET("/healthz", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/research", limiter.Middleware(), h.SubmitResearch)
	r.GET("/research/:id", h.GetResearch)
	r.GET("/reports/search", h.SearchReports)

	return r
}
