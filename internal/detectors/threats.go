// Package detectors derives threats, attacks, profiles and timelines from parsed entries.
// Every detector is a pure function of its input entries and configuration.
package detectors

import (
	"fmt"
	"strings"

	"github.com/dfrtlabs/loglens/internal/models"
)

const (
	// failedLoginThreshold is the match count that must be exceeded before the failed-login rule fires.
	failedLoginThreshold = 5
	// logClearedEventID is the Windows Security "audit log was cleared" event.
	logClearedEventID = 1102

	unknownValue = "unknown"
)

// ThreatRules selects which rule families the ThreatDetector evaluates.
type ThreatRules struct {
	FailedLogins bool
	Tampering    bool
}

// RulesFrom maps analysis options onto rule enablement.
func RulesFrom(opts models.AnalysisOptions) ThreatRules {
	return ThreatRules{
		FailedLogins: opts.EnableLoginAnalysis && opts.EnableFailedLoginDetection,
		Tampering:    opts.EnableLogTamperingDetection,
	}
}

// ThreatDetector evaluates the failed-login and log-tampering rules.
type ThreatDetector struct {
	rules ThreatRules
}

// NewThreatDetector constructs a detector for the given rule set.
func NewThreatDetector(rules ThreatRules) *ThreatDetector {
	return &ThreatDetector{rules: rules}
}

// Detect emits at most one threat per enabled rule.
func (d *ThreatDetector) Detect(entries []models.LogEntry) []models.Threat {
	threats := make([]models.Threat, 0, 2)
	if len(entries) == 0 {
		return threats
	}
	if d.rules.FailedLogins {
		if t, ok := detectFailedLogins(entries); ok {
			threats = append(threats, t)
		}
	}
	if d.rules.Tampering {
		if t, ok := detectTampering(entries); ok {
			threats = append(threats, t)
		}
	}
	return threats
}

func detectFailedLogins(entries []models.LogEntry) (models.Threat, bool) {
	var first *models.LogEntry
	count := 0
	for i := range entries {
		msg := strings.ToLower(entries[i].Message)
		if containsAny(msg, "failed", "failure") && containsAny(msg, "login", "logon", "authentication") {
			if first == nil {
				first = &entries[i]
			}
			count++
		}
	}
	if count <= failedLoginThreshold {
		return models.Threat{}, false
	}

	source := orDefault(first.IPAddress, unknownValue)
	return models.Threat{
		Type:            models.ThreatBruteForce,
		Severity:        models.SeverityCritical,
		Description:     fmt.Sprintf("Multiple failed login attempts detected (%d)", count),
		Source:          source,
		Target:          orDefault(first.User, unknownValue),
		Timestamp:       first.Timestamp,
		ConfidenceScore: min(0.95, 0.5+float64(count)*0.05),
		Recommendation:  fmt.Sprintf("Block source IP %s and reset affected account", source),
		RelatedEntries:  count,
	}, true
}

func detectTampering(entries []models.LogEntry) (models.Threat, bool) {
	var first *models.LogEntry
	count := 0
	for i := range entries {
		msg := strings.ToLower(entries[i].Message)
		if containsAny(msg, "cleared", "deleted", "purged") || entries[i].EventID == logClearedEventID {
			if first == nil {
				first = &entries[i]
			}
			count++
		}
	}
	if count == 0 {
		return models.Threat{}, false
	}
	return models.Threat{
		Type:            models.ThreatLogTampering,
		Severity:        models.SeverityCritical,
		Description:     fmt.Sprintf("Log tampering indicator: %d event(s) suggest log manipulation", count),
		Source:          "System",
		Target:          "Logs",
		Timestamp:       first.Timestamp,
		ConfidenceScore: 0.9,
		Recommendation:  "CRITICAL: Preserve remaining logs immediately and investigate",
		RelatedEntries:  count,
	}, true
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
