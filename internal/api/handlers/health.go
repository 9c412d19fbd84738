package handlers

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/amiyamandal-dev/podsync/internal/search"
	"github.com/amiyamandal-dev/podsync/pkg/logger"
)

// HealthChecker reports whether a dependency is usable
type HealthChecker interface {
	HealthCheck() error
}

// Probe checks one dependency for the readiness report. Details are merged
// into the dependency's entry.
type Probe struct {
	Name     string
	Required bool
	Check    func() (map[string]interface{}, error)
}

// DatabaseProbe checks the content and configuration store
func DatabaseProbe(db HealthChecker) Probe {
	return Probe{
		Name:     "database",
		Required: true,
		Check: func() (map[string]interface{}, error) {
			return nil, db.HealthCheck()
		},
	}
}

// SearchProbe checks the episode index. Imports keep working without it.
func SearchProbe(index search.Index) Probe {
	return Probe{
		Name: "search",
		Check: func() (map[string]interface{}, error) {
			count, err := index.Count()
			return map[string]interface{}{"document_count": count}, err
		},
	}
}

// SchedulerProbe reports the registered periodic triggers
func SchedulerProbe(enabled bool, intents func() map[string]time.Duration) Probe {
	return Probe{
		Name: "scheduler",
		Check: func() (map[string]interface{}, error) {
			return map[string]interface{}{
				"enabled":         enabled,
				"scheduled_feeds": len(intents()),
			}, nil
		},
	}
}

// HealthHandler handles health check requests
type HealthHandler struct {
	probes []Probe
	logger *logger.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(logger *logger.Logger, probes ...Probe) *HealthHandler {
	return &HealthHandler{
		probes: probes,
		logger: logger.WithComponent("health-handler"),
	}
}

// Health returns basic health status
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(200, gin.H{
		"status": "ok",
	})
}

// Readiness runs every probe in parallel. Only failing required probes make
// the service unready; optional ones add a warning.
func (h *HealthHandler) Readiness(c *gin.Context) {
	type outcome struct {
		details map[string]interface{}
		err     error
	}

	outcomes := make([]outcome, len(h.probes))
	var wg sync.WaitGroup
	for i, p := range h.probes {
		wg.Add(1)
		go func(i int, p Probe) {
			defer wg.Done()
			details, err := p.Check()
			outcomes[i] = outcome{details: details, err: err}
		}(i, p)
	}
	wg.Wait()

	ready := true
	checks := make(map[string]interface{}, len(h.probes))
	var warnings []string
	for i, p := range h.probes {
		o := outcomes[i]
		entry := map[string]interface{}{
			"healthy":  o.err == nil,
			"required": p.Required,
		}
		for k, v := range o.details {
			entry[k] = v
		}
		checks[p.Name] = entry

		if o.err == nil {
			continue
		}
		h.logger.Warn("Readiness probe failed", "probe", p.Name, "error", o.err)
		if p.Required {
			ready = false
		} else {
			warnings = append(warnings, p.Name+" not available: "+o.err.Error())
		}
	}

	status := "ready"
	code := 200
	if !ready {
		status = "not ready"
		code = 503
	}

	resp := gin.H{
		"status": status,
		"checks": checks,
	}
	if len(warnings) > 0 {
		resp["warnings"] = warnings
	}

	c.JSON(code, resp)
}

// Liveness checks if the service is alive
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(200, gin.H{
		"status": "alive",
	})
}
