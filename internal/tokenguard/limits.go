package tokenguard

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LimitsPathEnv points at an optional YAML file of token limit overrides.
const LimitsPathEnv = "MODELS_CONFIG_PATH"

// LimitEntry maps a model key to its maximum input budget in tokens.
type LimitEntry struct {
	Key   string `yaml:"key"`
	Limit int    `yaml:"limit"`
}

// LimitTable is an ordered list of entries. Lookup returns the first entry
// whose key is a substring of the model identifier, so more specific keys
// must precede keys they contain.
type LimitTable struct {
	entries []LimitEntry
}

var builtinLimits = []LimitEntry{
	{Key: "gigachat:gigachat-2-max", Limit: 32768},
	{Key: "gigachat:gigachat-2-pro", Limit: 32768},
	{Key: "gigachat:gigachat-2", Limit: 32768},
	{Key: "gigachat:gigachat-1", Limit: 32768},
	{Key: "openai:gpt-4.1-mini", Limit: 1047576},
	{Key: "openai:gpt-4.1-nano", Limit: 1047576},
	{Key: "openai:gpt-4.1", Limit: 1047576},
	{Key: "openai:gpt-4o-mini", Limit: 128000},
	{Key: "openai:gpt-4o", Limit: 128000},
	{Key: "openai:o4-mini", Limit: 200000},
	{Key: "openai:o3-mini", Limit: 200000},
	{Key: "openai:o3", Limit: 200000},
	{Key: "anthropic:claude-opus-4", Limit: 200000},
	{Key: "anthropic:claude-sonnet-4", Limit: 200000},
	{Key: "anthropic:claude-3-7-sonnet", Limit: 200000},
	{Key: "anthropic:claude-3-5-sonnet", Limit: 200000},
	{Key: "anthropic:claude-3-5-haiku", Limit: 200000},
}

// DefaultLimits returns the built-in table.
func DefaultLimits() *LimitTable {
	return NewLimitTable(nil)
}

// NewLimitTable places overrides ahead of the built-in entries.
func NewLimitTable(overrides []LimitEntry) *LimitTable {
	entries := make([]LimitEntry, 0, len(overrides)+len(builtinLimits))
	for _, e := range overrides {
		if e.Key == "" || e.Limit <= 0 {
			continue
		}
		entries = append(entries, LimitEntry{Key: strings.ToLower(e.Key), Limit: e.Limit})
	}
	entries = append(entries, builtinLimits...)
	return &LimitTable{entries: entries}
}

type limitsFile struct {
	TokenLimits []LimitEntry `yaml:"token_limits"`
}

// LoadLimits reads overrides from path, or from MODELS_CONFIG_PATH when path
// is empty. With neither set the built-in table is returned.
func LoadLimits(path string) (*LimitTable, error) {
	if path == "" {
		path = os.Getenv(LimitsPathEnv)
	}
	if path == "" {
		return DefaultLimits(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultLimits(), fmt.Errorf("token limits file %s: %w", path, err)
		}
		return DefaultLimits(), fmt.Errorf("read token limits: %w", err)
	}
	var f limitsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return DefaultLimits(), fmt.Errorf("parse token limits %s: %w", path, err)
	}
	return NewLimitTable(f.TokenLimits), nil
}

// Lookup returns the budget of the first entry whose key occurs in model.
// Matching ignores case.
func (t *LimitTable) Lookup(model string) (int, bool) {
	m := strings.ToLower(model)
	for _, e := range t.entries {
		if strings.Contains(m, e.Key) {
			return e.Limit, true
		}
	}
	return 0, false
}

// Entries returns a copy of the table in lookup order.
func (t *LimitTable) Entries() []LimitEntry {
	out := make([]LimitEntry, len(t.entries))
	copy(out, t.entries)
	return out
}
