// Package tokenguard recognizes upstream failures caused by exceeding a
// model's input budget and provides the history truncation used to recover.
package tokenguard

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Kocoro-lab/Shannon/go/research/internal/metrics"
	"github.com/Kocoro-lab/Shannon/go/research/internal/util"
)

// Provider is one closed-set provider variant. A failure is budget-exceeded
// for a provider only when a signature and a keyword both match.
type Provider struct {
	Name string
	// Signatures are matched against the provider tag, the Go type names in
	// the error chain and the error text.
	Signatures []string
	// Keywords are matched case-insensitively against the error text.
	Keywords []string
}

var (
	GigaChat = Provider{
		Name:       "gigachat",
		Signatures: []string{"gigachat"},
		Keywords:   []string{"token", "context", "length", "maximum", "reduce", "превышен", "лимит"},
	}
	OpenAI = Provider{
		Name:       "openai",
		Signatures: []string{"openai"},
		Keywords:   []string{"token", "context", "length", "maximum", "reduce", "context_length_exceeded"},
	}
	Anthropic = Provider{
		Name:       "anthropic",
		Signatures: []string{"anthropic"},
		Keywords:   []string{"token", "context", "length", "maximum", "reduce", "prompt is too long"},
	}
)

// Providers lists every known variant in evaluation order.
var Providers = []Provider{GigaChat, OpenAI, Anthropic}

// ProviderByName returns the variant with the given name.
func ProviderByName(name string) (Provider, bool) {
	for _, p := range Providers {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Provider{}, false
}

// providerTagged is implemented by upstream error types that know which
// provider produced them.
type providerTagged interface {
	UpstreamProvider() string
}

// authFailure is implemented by credential-exchange errors.
type authFailure interface {
	AuthFailure() bool
}

// statusCarrier is implemented by upstream errors that carry an HTTP status.
type statusCarrier interface {
	HTTPStatus() int
}

// failure is the text extracted once from an error for matching.
type failure struct {
	text      string // lowercased Error()
	tag       string // lowercased provider tag, if any
	typeNames string // lowercased %T of every error in the chain
	auth      bool   // credential failure; never a budget failure
}

func inspect(err error) failure {
	f := failure{text: strings.ToLower(err.Error())}

	var tagged providerTagged
	if errors.As(err, &tagged) {
		f.tag = strings.ToLower(tagged.UpstreamProvider())
	}
	var af authFailure
	if errors.As(err, &af) && af.AuthFailure() {
		f.auth = true
	}
	var sc statusCarrier
	if errors.As(err, &sc) {
		switch sc.HTTPStatus() {
		case http.StatusUnauthorized, http.StatusForbidden:
			f.auth = true
		}
	}

	var names []string
	walk(err, func(e error) { names = append(names, fmt.Sprintf("%T", e)) })
	f.typeNames = strings.ToLower(strings.Join(names, " "))
	return f
}

// walk visits err and every error reachable through Unwrap, including joined errors.
func walk(err error, visit func(error)) {
	for depth := 0; err != nil && depth < 32; depth++ {
		visit(err)
		switch u := err.(type) {
		case interface{ Unwrap() []error }:
			for _, e := range u.Unwrap() {
				walk(e, visit)
			}
			return
		case interface{ Unwrap() error }:
			err = u.Unwrap()
		default:
			return
		}
	}
}

func (p Provider) signatureMatch(f failure) bool {
	for _, sig := range p.Signatures {
		sig = strings.ToLower(sig)
		if f.tag == sig || strings.Contains(f.typeNames, sig) || strings.Contains(f.text, sig) {
			return true
		}
	}
	return false
}

func (p Provider) matches(f failure) bool {
	return !f.auth && p.signatureMatch(f) && util.ContainsFold(f.text, p.Keywords)
}

// Matches reports whether err is a budget-exceeded failure from this provider.
// It never panics.
func (p Provider) Matches(err error) (matched bool) {
	if err == nil {
		return false
	}
	defer func() {
		if recover() != nil {
			matched = false
		}
	}()
	return p.matches(inspect(err))
}

// Guard classifies upstream failures and looks up token budgets.
type Guard struct {
	providers []Provider
	limits    *LimitTable
	logger    *zap.Logger
}

// NewGuard creates a guard over the given limit table. A nil table uses the
// built-in defaults.
func NewGuard(limits *LimitTable, logger *zap.Logger) *Guard {
	if limits == nil {
		limits = DefaultLimits()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{providers: Providers, limits: limits, logger: logger}
}

// IsBudgetExceeded reports whether err means the upstream model's input
// budget was exceeded. A model with a known provider prefix selects that
// provider's variant; otherwise every variant is evaluated. It never panics.
func (g *Guard) IsBudgetExceeded(err error, model string) (exceeded bool) {
	if err == nil {
		return false
	}
	provider := "any"
	defer func() {
		if r := recover(); r != nil {
			g.logger.Warn("Budget classification panicked", zap.Any("panic", r))
			exceeded = false
		}
		metrics.BudgetClassifications.WithLabelValues(provider, strconv.FormatBool(exceeded)).Inc()
	}()

	f := inspect(err)
	if p, ok := g.providerForModel(model); ok {
		provider = p.Name
		return p.matches(f)
	}
	for _, p := range g.providers {
		if p.matches(f) {
			return true
		}
	}
	return false
}

func (g *Guard) providerForModel(model string) (Provider, bool) {
	prefix, _, ok := strings.Cut(strings.ToLower(strings.TrimSpace(model)), ":")
	if !ok {
		return Provider{}, false
	}
	for _, p := range g.providers {
		if p.Name == prefix {
			return p, true
		}
	}
	return Provider{}, false
}

// TokenLimit returns the configured input budget for model.
func (g *Guard) TokenLimit(model string) (int, bool) {
	return g.limits.Lookup(model)
}

var defaultGuard = NewGuard(nil, nil)

// IsBudgetExceeded classifies err with the default guard.
func IsBudgetExceeded(err error, model string) bool {
	return defaultGuard.IsBudgetExceeded(err, model)
}
