package engine

import (
	"errors"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dfrtlabs/loglens/internal/models"
)

// RuleEngine appends site-specific recommendations to the fixed remediation lines.
type RuleEngine struct {
	rules  []Rule
	logger *slog.Logger
}

// Rule represents a single recommendation rule.
type Rule struct {
	ID              string    `yaml:"id"`
	Match           RuleMatch `yaml:"match"`
	Recommendations []string  `yaml:"recommendations"`
}

// RuleMatch defines optional attributes for rule matching. Unset attributes match everything.
type RuleMatch struct {
	ThreatType   string  `yaml:"threat_type"`
	Severity     string  `yaml:"severity"`
	MinRiskScore float64 `yaml:"min_risk_score"`
}

// RuleConfigFile is the YAML root structure.
type RuleConfigFile struct {
	Rules []Rule `yaml:"rules"`
}

// NewRuleEngine loads rules from the provided path. If path is empty or missing, returns nil engine.
func NewRuleEngine(path string, logger *slog.Logger) (*RuleEngine, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var cfg RuleConfigFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("loaded recommendation rules", slog.String("path", path), slog.Int("rules", len(cfg.Rules)))
	return &RuleEngine{rules: cfg.Rules, logger: logger}, nil
}

// Len reports the number of loaded rules.
func (e *RuleEngine) Len() int {
	if e == nil {
		return 0
	}
	return len(e.rules)
}

// Recommend returns the recommendations of every matching rule, deduplicated, in rule order.
func (e *RuleEngine) Recommend(threats []models.Threat, riskScore float64) []string {
	if e == nil {
		return nil
	}

	matched := make([]string, 0)
	for _, rule := range e.rules {
		if rule.Match.ThreatType != "" && !threatsHaveType(rule.Match.ThreatType, threats) {
			continue
		}
		if rule.Match.Severity != "" && !threatsHaveSeverity(rule.Match.Severity, threats) {
			continue
		}
		if riskScore < rule.Match.MinRiskScore {
			continue
		}
		e.logger.Debug("recommendation rule matched", slog.String("rule", rule.ID))
		matched = appendUnique(matched, rule.Recommendations...)
	}
	return matched
}

func threatsHaveType(kind string, threats []models.Threat) bool {
	for _, t := range threats {
		if strings.EqualFold(kind, string(t.Type)) {
			return true
		}
	}
	return false
}

func threatsHaveSeverity(severity string, threats []models.Threat) bool {
	for _, t := range threats {
		if strings.EqualFold(severity, string(t.Severity)) {
			return true
		}
	}
	return false
}

func appendUnique(existing []string, additions ...string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, rec := range existing {
		seen[rec] = struct{}{}
	}
	for _, item := range additions {
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		existing = append(existing, item)
		seen[item] = struct{}{}
	}
	return existing
}
