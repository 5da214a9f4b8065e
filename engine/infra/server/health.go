package server

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 2 * time.Second

// HealthChecker is implemented by the postgres store and the redis client.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type componentStatus struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

func healthHandler(checks map[string]HealthChecker) gin.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()
		healthy := true
		components := make([]componentStatus, 0, len(names))
		for _, name := range names {
			st := componentStatus{Name: name, Healthy: true}
			if err := checks[name].HealthCheck(ctx); err != nil {
				st.Healthy = false
				st.Error = err.Error()
				healthy = false
			}
			components = append(components, st)
		}
		status, code := "healthy", http.StatusOK
		if !healthy {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "components": components})
	}
}
