// Package credentials resolves upstream API keys from the environment or from
// the configuration map, depending on a process-wide resolution mode.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Kocoro-lab/Shannon/go/research/internal/config"
	"github.com/Kocoro-lab/Shannon/go/research/internal/util"
)

// ModeEnv switches lookups to the configuration map when set to "true".
const ModeEnv = "GET_API_KEYS_FROM_CONFIG"

// Known providers.
const (
	ProviderTavily    = "tavily"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGigaChat  = "gigachat"
)

// ErrMissingCredential is returned when a required key cannot be resolved.
var ErrMissingCredential = errors.New("missing credential")

// KnownProviders lists providers in the order the check command reports them.
var KnownProviders = []string{ProviderTavily, ProviderGigaChat, ProviderOpenAI, ProviderAnthropic}

// Resolver looks up API keys. Keys are treated as opaque strings.
type Resolver struct {
	fromConfig bool
	keys       map[string]string
	getenv     func(string) string
}

// NewResolver builds a resolver. The GET_API_KEYS_FROM_CONFIG environment
// variable takes precedence over credentials.from_config.
func NewResolver(cfg config.CredentialsConfig) *Resolver {
	fromConfig := cfg.FromConfig
	if v, ok := os.LookupEnv(ModeEnv); ok {
		fromConfig = strings.EqualFold(strings.TrimSpace(v), "true")
	}
	keys := make(map[string]string, len(cfg.APIKeys))
	for k, v := range cfg.APIKeys {
		keys[strings.ToLower(k)] = v
	}
	return &Resolver{fromConfig: fromConfig, keys: keys, getenv: os.Getenv}
}

// FromConfig reports whether keys are read from the configuration map.
func (r *Resolver) FromConfig() bool { return r.fromConfig }

// EnvName returns the variable or map key holding a provider's key.
func EnvName(provider string) string {
	return strings.ToUpper(provider) + "_API_KEY"
}

// GetKey returns the key for providerName, or false when absent.
func (r *Resolver) GetKey(providerName string) (string, bool) {
	name := EnvName(strings.TrimSpace(providerName))
	var v string
	if r.fromConfig {
		v = r.keys[strings.ToLower(name)]
	} else {
		v = r.getenv(name)
	}
	if v == "" {
		return "", false
	}
	return v, true
}

// Require is GetKey returning ErrMissingCredential when the key is absent.
func (r *Resolver) Require(providerName string) (string, error) {
	if key, ok := r.GetKey(providerName); ok {
		return key, nil
	}
	return "", fmt.Errorf("%w: %s", ErrMissingCredential, EnvName(providerName))
}

// ProviderForModel extracts the provider prefix from identifiers such as
// "gigachat:GigaChat-2-Max". Unknown prefixes return "".
func ProviderForModel(model string) string {
	prefix, _, ok := strings.Cut(strings.ToLower(strings.TrimSpace(model)), ":")
	if !ok {
		return ""
	}
	switch prefix {
	case ProviderOpenAI, ProviderAnthropic, ProviderGigaChat:
		return prefix
	}
	return ""
}

// KeyForModel resolves the key for a provider-prefixed model identifier.
func (r *Resolver) KeyForModel(model string) (string, bool) {
	provider := ProviderForModel(model)
	if provider == "" {
		return "", false
	}
	return r.GetKey(provider)
}

// KeyStatus describes one provider key for display.
type KeyStatus struct {
	Provider string
	Name     string
	Present  bool
	Masked   string
}

// Status reports every known provider key with its value masked.
func (r *Resolver) Status() []KeyStatus {
	out := make([]KeyStatus, 0, len(KnownProviders))
	for _, p := range KnownProviders {
		key, ok := r.GetKey(p)
		st := KeyStatus{Provider: p, Name: EnvName(p), Present: ok}
		if ok {
			st.Masked = util.MaskSecret(key, 10)
		}
		out = append(out, st)
	}
	return out
}
