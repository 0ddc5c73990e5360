package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Kocoro-lab/Shannon/go/research/internal/circuitbreaker"
	"github.com/Kocoro-lab/Shannon/go/research/internal/tracing"
)

const (
	// DefaultPath is used when CONFIG_PATH is unset.
	DefaultPath = "./config/research.yaml"
	envPrefix   = "RESEARCH"
)

// Search API selectors.
const (
	SearchAPITavily   = "tavily"
	SearchAPIGigaChat = "gigachat"
	SearchAPINone     = "none"
)

type SearchConfig struct {
	API               string        `mapstructure:"api"`
	BaseURL           string        `mapstructure:"base_url"`
	MaxResults        int           `mapstructure:"max_results"`
	MaxResultsCap     int           `mapstructure:"max_results_cap"`
	Topic             string        `mapstructure:"topic"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxParallel       int           `mapstructure:"max_parallel"`
}

type SummarizationConfig struct {
	Model                      string        `mapstructure:"model"`
	BaseURL                    string        `mapstructure:"base_url"`
	AuthURL                    string        `mapstructure:"auth_url"`
	Scope                      string        `mapstructure:"scope"`
	MaxTokens                  int           `mapstructure:"max_tokens"`
	MaxContentLength           int           `mapstructure:"max_content_length"`
	Timeout                    time.Duration `mapstructure:"timeout"`
	MaxStructuredOutputRetries int           `mapstructure:"max_structured_output_retries"`
}

type CredentialsConfig struct {
	FromConfig bool              `mapstructure:"from_config"`
	APIKeys    map[string]string `mapstructure:"api_keys"`
}

type RedisConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Addr         string `mapstructure:"addr"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	StreamPrefix string `mapstructure:"stream_prefix"`
	MaxLen       int64  `mapstructure:"max_len"`
}

type DecisionLogConfig struct {
	Enabled bool        `mapstructure:"enabled"`
	Console bool        `mapstructure:"console"`
	Redis   RedisConfig `mapstructure:"redis"`
}

type ObservabilityConfig struct {
	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
		Port    int  `mapstructure:"port"`
	} `mapstructure:"metrics"`
	Logging struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"logging"`
	Tracing tracing.Config `mapstructure:"tracing"`
}

// Config is the full research orchestrator configuration.
type Config struct {
	Search         SearchConfig            `mapstructure:"search"`
	Summarization  SummarizationConfig     `mapstructure:"summarization"`
	Credentials    CredentialsConfig       `mapstructure:"credentials"`
	DecisionLog    DecisionLogConfig       `mapstructure:"decision_log"`
	Observability  ObservabilityConfig     `mapstructure:"observability"`
	CircuitBreaker circuitbreaker.Settings `mapstructure:"circuit_breaker"`
}

// Validate checks cross-field constraints that defaults alone cannot guarantee.
// Enumerated values are case-folded in place.
func (c *Config) Validate() error {
	c.Search.API = strings.ToLower(strings.TrimSpace(c.Search.API))
	c.Search.Topic = strings.ToLower(strings.TrimSpace(c.Search.Topic))
	if c.Search.Topic == "" {
		c.Search.Topic = "general"
	}
	switch c.Search.API {
	case SearchAPITavily, SearchAPIGigaChat, SearchAPINone:
	default:
		return fmt.Errorf("search.api must be one of tavily, gigachat, none: got %q", c.Search.API)
	}
	switch c.Search.Topic {
	case "general", "news", "finance":
	default:
		return fmt.Errorf("search.topic must be one of general, news, finance: got %q", c.Search.Topic)
	}
	if c.Search.MaxResults <= 0 {
		return errors.New("search.max_results must be positive")
	}
	if c.Search.MaxResultsCap > 0 && c.Search.MaxResults > c.Search.MaxResultsCap {
		return fmt.Errorf("search.max_results %d exceeds search.max_results_cap %d", c.Search.MaxResults, c.Search.MaxResultsCap)
	}
	if c.Summarization.Timeout <= 0 {
		return errors.New("summarization.timeout must be positive")
	}
	if c.DecisionLog.Redis.Enabled && c.DecisionLog.Redis.Addr == "" {
		return errors.New("decision_log.redis.addr is required when the redis renderer is enabled")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("search.api", SearchAPITavily)
	v.SetDefault("search.base_url", "https://api.tavily.com")
	v.SetDefault("search.max_results", 5)
	v.SetDefault("search.max_results_cap", 10)
	v.SetDefault("search.topic", "general")
	v.SetDefault("search.requests_per_second", 5.0)
	v.SetDefault("search.timeout", 30*time.Second)
	v.SetDefault("search.max_parallel", 0)

	v.SetDefault("summarization.model", "gigachat:GigaChat-2-Max")
	v.SetDefault("summarization.base_url", "")
	v.SetDefault("summarization.auth_url", "https://ngw.devices.sberbank.ru:9443/api/v2/oauth")
	v.SetDefault("summarization.scope", "GIGACHAT_API_CORP")
	v.SetDefault("summarization.max_tokens", 8192)
	v.SetDefault("summarization.max_content_length", 50000)
	v.SetDefault("summarization.timeout", 60*time.Second)
	v.SetDefault("summarization.max_structured_output_retries", 3)

	v.SetDefault("credentials.from_config", false)
	v.SetDefault("credentials.api_keys", map[string]string{})

	v.SetDefault("decision_log.enabled", true)
	v.SetDefault("decision_log.console", true)
	v.SetDefault("decision_log.redis.enabled", false)
	v.SetDefault("decision_log.redis.addr", "localhost:6379")
	v.SetDefault("decision_log.redis.password", "")
	v.SetDefault("decision_log.redis.db", 0)
	v.SetDefault("decision_log.redis.stream_prefix", "research:decisions")
	v.SetDefault("decision_log.redis.max_len", 10000)

	v.SetDefault("observability.metrics.enabled", false)
	v.SetDefault("observability.metrics.port", 9090)
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "console")
	v.SetDefault("observability.tracing.enabled", false)
	v.SetDefault("observability.tracing.service_name", "shannon-research")
	v.SetDefault("observability.tracing.otlp_endpoint", "localhost:4317")

	d := circuitbreaker.DefaultConfig()
	v.SetDefault("circuit_breaker.max_requests", d.MaxRequests)
	v.SetDefault("circuit_breaker.interval", d.Interval)
	v.SetDefault("circuit_breaker.timeout", d.Timeout)
	v.SetDefault("circuit_breaker.failure_threshold", d.FailureThreshold)
	v.SetDefault("circuit_breaker.success_threshold", d.SuccessThreshold)
}

// Loader reads configuration from a YAML file plus RESEARCH_* environment
// overrides and can watch the file for changes.
type Loader struct {
	v      *viper.Viper
	path   string
	logger *zap.Logger

	mu      sync.RWMutex
	current *Config
}

// NewLoader creates a loader for path. An empty path resolves to CONFIG_PATH
// or DefaultPath.
func NewLoader(path string, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = DefaultPath
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	return &Loader{v: v, path: path, logger: logger}
}

// Path returns the config file path the loader reads.
func (l *Loader) Path() string { return l.path }

// Load reads the config file if present. A missing file is not an error.
func (l *Loader) Load() (*Config, error) {
	if _, err := os.Stat(l.path); err == nil {
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat config: %w", err)
	} else {
		l.logger.Debug("Config file not found, using defaults", zap.String("path", l.path))
	}

	cfg, err := l.decode()
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.current = cfg
	l.mu.Unlock()
	return cfg, nil
}

// Current returns the most recently loaded configuration.
func (l *Loader) Current() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

func (l *Loader) decode() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Watch hot-reloads the config file and invokes onChange with every valid
// revision. Invalid revisions are logged and ignored.
func (l *Loader) Watch(onChange func(*Config)) {
	if _, err := os.Stat(l.path); err != nil {
		l.logger.Debug("Config watch skipped, file not present", zap.String("path", l.path))
		return
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := l.decode()
		if err != nil {
			l.logger.Warn("Ignoring invalid config reload", zap.String("file", e.Name), zap.Error(err))
			return
		}
		l.mu.Lock()
		l.current = cfg
		l.mu.Unlock()
		l.logger.Info("Configuration reloaded", zap.String("file", e.Name))
		if onChange != nil {
			onChange(cfg)
		}
	})
	l.v.WatchConfig()
}

// Load is a convenience wrapper reading CONFIG_PATH or DefaultPath.
func Load(logger *zap.Logger) (*Config, error) {
	return NewLoader("", logger).Load()
}
