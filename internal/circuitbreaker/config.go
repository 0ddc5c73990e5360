package circuitbreaker

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Settings is the subset of breaker knobs exposed through the research config file.
type Settings struct {
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
	SuccessThreshold uint32        `mapstructure:"success_threshold"`
}

// ToConfig merges non-zero settings over DefaultConfig.
func (s Settings) ToConfig() Config {
	c := DefaultConfig()
	if s.MaxRequests > 0 {
		c.MaxRequests = s.MaxRequests
	}
	if s.Interval > 0 {
		c.Interval = s.Interval
	}
	if s.Timeout > 0 {
		c.Timeout = s.Timeout
	}
	if s.FailureThreshold > 0 {
		c.FailureThreshold = s.FailureThreshold
	}
	if s.SuccessThreshold > 0 {
		c.SuccessThreshold = s.SuccessThreshold
	}
	return c
}

// ForUpstream applies CB_<UPSTREAM>_* environment overrides, e.g. CB_SEARCH_TIMEOUT=10s.
func ForUpstream(upstream string, base Config) Config {
	prefix := "CB_" + strings.ToUpper(upstream) + "_"
	base.MaxRequests = getEnvUint32(prefix+"MAX_REQUESTS", base.MaxRequests)
	base.Interval = getEnvDuration(prefix+"INTERVAL", base.Interval)
	base.Timeout = getEnvDuration(prefix+"TIMEOUT", base.Timeout)
	base.FailureThreshold = getEnvUint32(prefix+"FAILURE_THRESHOLD", base.FailureThreshold)
	base.SuccessThreshold = getEnvUint32(prefix+"SUCCESS_THRESHOLD", base.SuccessThreshold)
	return base
}

func getEnvUint32(key string, defaultValue uint32) uint32 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseUint(val, 10, 32); err == nil {
			return uint32(parsed)
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return defaultValue
}
