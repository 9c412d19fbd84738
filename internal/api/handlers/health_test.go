package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amiyamandal-dev/podsync/pkg/logger"
)

type stubChecker struct{ err error }

func (s stubChecker) HealthCheck() error { return s.err }

func readiness(t *testing.T, h *HealthHandler) (int, map[string]interface{}) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	h.Readiness(c)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestReadinessOptionalProbeOnlyWarns(t *testing.T) {
	h := NewHealthHandler(logger.Nop(),
		DatabaseProbe(stubChecker{}),
		Probe{Name: "search", Check: func() (map[string]interface{}, error) {
			return map[string]interface{}{"document_count": 0}, errors.New("index closed")
		}},
		SchedulerProbe(true, func() map[string]time.Duration {
			return map[string]time.Duration{"a": time.Hour, "b": time.Minute}
		}),
	)

	code, body := readiness(t, h)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ready", body["status"])
	assert.Equal(t, []interface{}{"search not available: index closed"}, body["warnings"])

	checks := body["checks"].(map[string]interface{})
	search := checks["search"].(map[string]interface{})
	assert.Equal(t, false, search["healthy"])
	assert.Equal(t, false, search["required"])

	sched := checks["scheduler"].(map[string]interface{})
	assert.Equal(t, float64(2), sched["scheduled_feeds"])
	assert.Equal(t, true, sched["enabled"])
}

func TestReadinessRequiredProbeFails(t *testing.T) {
	h := NewHealthHandler(logger.Nop(), DatabaseProbe(stubChecker{err: errors.New("closed")}))

	code, body := readiness(t, h)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "not ready", body["status"])
	assert.Nil(t, body["warnings"])
}
