package health

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Kocoro-lab/Shannon/go/research/internal/circuitbreaker"
)

// RedisHealthChecker pings the decision log stream backend.
type RedisHealthChecker struct {
	client  redis.UniversalClient
	logger  *zap.Logger
	timeout time.Duration
}

func NewRedisHealthChecker(client redis.UniversalClient, logger *zap.Logger) *RedisHealthChecker {
	return &RedisHealthChecker{client: client, logger: logger, timeout: 5 * time.Second}
}

func (r *RedisHealthChecker) Name() string           { return "redis" }
func (r *RedisHealthChecker) IsCritical() bool       { return false } // decision log publishing is best effort
func (r *RedisHealthChecker) Timeout() time.Duration { return r.timeout }

func (r *RedisHealthChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	result := CheckResult{Component: "redis", Timestamp: start}

	err := r.client.Ping(ctx).Err()
	result.Duration = time.Since(start)
	if err != nil {
		result.Status = StatusUnhealthy
		result.Error = err.Error()
		result.Message = "Redis ping failed"
		return result
	}

	if result.Duration > 100*time.Millisecond {
		result.Status = StatusDegraded
		result.Message = "Redis responding but with high latency"
	} else {
		result.Status = StatusHealthy
		result.Message = "Redis healthy"
	}
	result.Details = map[string]any{"latency_ms": result.Duration.Milliseconds()}
	return result
}

// BreakerHealthChecker reports unhealthy while any breaker of one upstream
// is open, and degraded while one is probing.
type BreakerHealthChecker struct {
	upstream string
	critical bool
	states   func() map[string]circuitbreaker.State
}

// NewBreakerHealthChecker watches the breakers registered for upstream
// ("search", "condense") with the global collector.
func NewBreakerHealthChecker(upstream string, critical bool) *BreakerHealthChecker {
	return &BreakerHealthChecker{
		upstream: upstream,
		critical: critical,
		states:   circuitbreaker.GlobalMetricsCollector.States,
	}
}

func (b *BreakerHealthChecker) Name() string           { return b.upstream }
func (b *BreakerHealthChecker) IsCritical() bool       { return b.critical }
func (b *BreakerHealthChecker) Timeout() time.Duration { return time.Second }

func (b *BreakerHealthChecker) Check(ctx context.Context) CheckResult {
	result := CheckResult{Component: b.upstream, Timestamp: time.Now(), Status: StatusHealthy}
	details := map[string]any{}
	for key, state := range b.states() {
		provider, upstream, ok := strings.Cut(key, ":")
		if !ok || upstream != b.upstream {
			continue
		}
		details[provider] = state.String()
		switch state {
		case circuitbreaker.StateOpen:
			result.Status = StatusUnhealthy
			result.Error = "circuit breaker open"
		case circuitbreaker.StateHalfOpen:
			if result.Status == StatusHealthy {
				result.Status = StatusDegraded
			}
		}
	}
	result.Details = details
	return result
}

// CustomHealthChecker adapts a function into a Checker.
type CustomHealthChecker struct {
	name     string
	critical bool
	timeout  time.Duration
	checkFn  func(ctx context.Context) CheckResult
}

func NewCustomHealthChecker(name string, critical bool, timeout time.Duration, checkFn func(ctx context.Context) CheckResult) *CustomHealthChecker {
	return &CustomHealthChecker{name: name, critical: critical, timeout: timeout, checkFn: checkFn}
}

func (c *CustomHealthChecker) Name() string           { return c.name }
func (c *CustomHealthChecker) IsCritical() bool       { return c.critical }
func (c *CustomHealthChecker) Timeout() time.Duration { return c.timeout }

func (c *CustomHealthChecker) Check(ctx context.Context) CheckResult {
	return c.checkFn(ctx)
}
