package policy

import (
	"github.com/bmatcuk/doublestar/v4"

	"github.com/reglet-dev/ledgerhost/domain/ports"
)

// Rule restricts who may call contracts whose role matches Callee.
// Patterns use doublestar syntax over slash-separated role paths.
type Rule struct {
	// Callee is the role pattern the rule protects, e.g. "system/**".
	Callee string `yaml:"callee" toml:"callee"`

	// Callers lists role patterns allowed to call a matching callee.
	Callers []string `yaml:"callers" toml:"callers"`

	// AllowAnonymous permits callers without a role.
	AllowAnonymous bool `yaml:"allow_anonymous" toml:"allow_anonymous"`
}

// SystemRules protects "system/**" contracts so that only other system
// contracts may call them.
func SystemRules() []Rule {
	return []Rule{{Callee: "system/**", Callers: []string{"system/**"}}}
}

// policyConfig holds configuration for the CallPolicy.
type policyConfig struct {
	denialHandler ports.DenialHandler
	rules         []Rule
}

func defaultPolicyConfig() policyConfig {
	return policyConfig{
		denialHandler: &SlogDenialHandler{},
	}
}

// PolicyOption configures the CallPolicy.
type PolicyOption func(*policyConfig)

// WithRules appends call rules. Invalid patterns are ignored.
func WithRules(rules ...Rule) PolicyOption {
	return func(c *policyConfig) {
		c.rules = append(c.rules, rules...)
	}
}

// WithDenialHandler sets the denial handler.
func WithDenialHandler(h ports.DenialHandler) PolicyOption {
	return func(c *policyConfig) {
		c.denialHandler = h
	}
}

// CallPolicy enforces role-based call restrictions. Callees without a role,
// or whose role matches no rule, are callable by anyone.
type CallPolicy struct {
	config policyConfig
	rules  []Rule
}

// NewCallPolicy creates a new CallPolicy.
func NewCallPolicy(opts ...PolicyOption) *CallPolicy {
	cfg := defaultPolicyConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	p := &CallPolicy{config: cfg}
	for _, r := range cfg.rules {
		if !doublestar.ValidatePattern(r.Callee) {
			continue
		}
		compiled := Rule{Callee: r.Callee, AllowAnonymous: r.AllowAnonymous}
		for _, c := range r.Callers {
			if doublestar.ValidatePattern(c) {
				compiled.Callers = append(compiled.Callers, c)
			}
		}
		p.rules = append(p.rules, compiled)
	}
	return p
}

// AllowCall implements ports.CallPolicy. Every rule whose Callee matches
// must admit the caller.
func (p *CallPolicy) AllowCall(callerRole, calleeRole string) bool {
	if calleeRole == "" {
		return true
	}
	for _, r := range p.rules {
		if matched, _ := doublestar.Match(r.Callee, calleeRole); !matched {
			continue
		}
		if !admits(r, callerRole) {
			reason := "caller role not permitted"
			if callerRole == "" {
				reason = "contract without role called role contract"
			}
			p.config.denialHandler.OnDenial(callerRole, calleeRole, reason)
			return false
		}
	}
	return true
}

func admits(r Rule, callerRole string) bool {
	if callerRole == "" {
		return r.AllowAnonymous
	}
	for _, pattern := range r.Callers {
		if matched, _ := doublestar.Match(pattern, callerRole); matched {
			return true
		}
	}
	return false
}

var _ ports.CallPolicy = (*CallPolicy)(nil)
