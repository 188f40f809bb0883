// Package blockrules classifies page content against an ordered list of
// block indicators. The list is data, not code: rules are evaluated in a
// fixed order and the first match wins, so new block categories ship as
// configuration instead of new branches.
package blockrules

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rule pairs a lowercase substring pattern with the label reported when it
// matches.
type Rule struct {
	Pattern string `yaml:"pattern" json:"pattern"`
	Label   string `yaml:"label" json:"label"`
}

// RuleSet holds rules in evaluation order. Matching is pure: the same
// input always yields the same result.
type RuleSet struct {
	rules []Rule
}

// Default returns the built-in indicator list. Order matters: specific
// denial messages come before vendor names so the label identifies the
// page shown, not just the CDN serving it.
func Default() *RuleSet {
	rs, _ := New([]Rule{
		{Pattern: "access denied", Label: "access-denied"},
		{Pattern: "request blocked", Label: "waf"},
		{Pattern: "temporarily unavailable", Label: "waf"},
		{Pattern: "captcha", Label: "captcha"},
		{Pattern: "are you human", Label: "captcha"},
		{Pattern: "robot check", Label: "captcha"},
		{Pattern: "akamai", Label: "cdn"},
		{Pattern: "cloudflare", Label: "cdn"},
	})
	return rs
}

// New builds a RuleSet from explicit rules, normalizing patterns to lower
// case once up front.
func New(rules []Rule) (*RuleSet, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("empty rule list")
	}
	normalized := make([]Rule, 0, len(rules))
	for i, r := range rules {
		if strings.TrimSpace(r.Pattern) == "" {
			return nil, fmt.Errorf("rule %d has empty pattern", i)
		}
		if strings.TrimSpace(r.Label) == "" {
			return nil, fmt.Errorf("rule %d (%q) has empty label", i, r.Pattern)
		}
		normalized = append(normalized, Rule{
			Pattern: strings.ToLower(r.Pattern),
			Label:   r.Label,
		})
	}
	return &RuleSet{rules: normalized}, nil
}

// LoadFile reads a YAML rule list and replaces the defaults wholesale.
// A malformed file is a configuration error, not something to fall back
// silently from.
func LoadFile(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var rules []Rule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	rs, err := New(rules)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return rs, nil
}

// Match scans title then content for the first matching rule and returns
// its label. Inputs are lowercased here so callers can pass raw page text.
func (rs *RuleSet) Match(title, content string) (string, bool) {
	title = strings.ToLower(title)
	content = strings.ToLower(content)
	for _, r := range rs.rules {
		if strings.Contains(title, r.Pattern) || strings.Contains(content, r.Pattern) {
			return r.Label, true
		}
	}
	return "", false
}

// Len reports how many rules are active, mostly for startup logging.
func (rs *RuleSet) Len() int {
	return len(rs.rules)
}
