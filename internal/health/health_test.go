package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Kocoro-lab/Shannon/go/research/internal/circuitbreaker"
)

func staticChecker(name string, critical bool, status CheckStatus) Checker {
	return NewCustomHealthChecker(name, critical, time.Second, func(ctx context.Context) CheckResult {
		return CheckResult{Status: status}
	})
}

func TestManagerAggregation(t *testing.T) {
	tests := []struct {
		name     string
		checkers []Checker
		want     CheckStatus
		ready    bool
	}{
		{"no checkers", nil, StatusHealthy, true},
		{"all healthy", []Checker{staticChecker("a", true, StatusHealthy)}, StatusHealthy, true},
		{"non critical failure degrades", []Checker{
			staticChecker("a", true, StatusHealthy),
			staticChecker("b", false, StatusUnhealthy),
		}, StatusDegraded, true},
		{"critical failure", []Checker{
			staticChecker("a", true, StatusUnhealthy),
			staticChecker("b", false, StatusDegraded),
		}, StatusUnhealthy, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(zaptest.NewLogger(t))
			for _, c := range tt.checkers {
				require.NoError(t, m.RegisterChecker(c))
			}
			report := m.Check(context.Background())
			assert.Equal(t, tt.want, report.Status)
			assert.Equal(t, tt.ready, report.Ready)
			assert.Len(t, report.Components, len(tt.checkers))
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	m := NewManager(nil)
	require.NoError(t, m.RegisterChecker(staticChecker("a", true, StatusHealthy)))
	assert.Error(t, m.RegisterChecker(staticChecker("a", false, StatusHealthy)))
	assert.Equal(t, []string{"a"}, m.Names())
}

func TestRedisHealthChecker(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	c := NewRedisHealthChecker(client, zaptest.NewLogger(t))
	assert.Equal(t, StatusHealthy, c.Check(context.Background()).Status)

	mr.Close()
	res := c.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, res.Status)
	assert.NotEmpty(t, res.Error)
}

func TestBreakerHealthChecker(t *testing.T) {
	states := map[string]circuitbreaker.State{
		"tavily:search":     circuitbreaker.StateClosed,
		"gigachat:condense": circuitbreaker.StateHalfOpen,
	}
	c := NewBreakerHealthChecker("search", true)
	c.states = func() map[string]circuitbreaker.State { return states }

	assert.Equal(t, StatusHealthy, c.Check(context.Background()).Status)

	states["tavily:search"] = circuitbreaker.StateOpen
	assert.Equal(t, StatusUnhealthy, c.Check(context.Background()).Status)

	cc := NewBreakerHealthChecker("condense", false)
	cc.states = c.states
	assert.Equal(t, StatusDegraded, cc.Check(context.Background()).Status)
}

func TestHTTPHandler(t *testing.T) {
	m := NewManager(nil)
	require.NoError(t, m.RegisterChecker(staticChecker("search", true, StatusUnhealthy)))
	mux := http.NewServeMux()
	NewHTTPHandler(m, zaptest.NewLogger(t)).RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unhealthy", body["status"])

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
