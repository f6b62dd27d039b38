package engine

import "github.com/dfrtlabs/loglens/internal/models"

// RiskScore sums severity-weighted, confidence-scaled threat contributions, clamped to [0,1].
func RiskScore(threats []models.Threat) float64 {
	score := 0.0
	for _, t := range threats {
		switch t.Severity {
		case models.SeverityCritical, models.SeverityAlert:
			score += 0.3 * t.ConfidenceScore
		case models.SeverityWarning:
			score += 0.15 * t.ConfidenceScore
		case models.SeverityInfo:
			score += 0.05 * t.ConfidenceScore
		default:
			score += 0.02
		}
	}
	return clamp(score, 0, 1)
}

// GenerateRecommendations derives the fixed remediation lines from threat and attack presence.
func GenerateRecommendations(threats []models.Threat, attacks []models.BruteForceAttack) []string {
	recs := make([]string, 0, 8)
	if len(attacks) > 0 {
		recs = append(recs,
			"Block source IPs involved in brute-force attacks",
			"Implement or enforce account lockout policies",
			"Enable multi-factor authentication (MFA)",
			"Review and harden password policies",
		)
	}
	if models.HasThreat(threats, models.ThreatLogTampering) {
		recs = append(recs,
			"CRITICAL: Preserve all remaining log evidence",
			"Implement centralized log forwarding (syslog, CEF)",
			"Enable file integrity monitoring (FIM)",
			"Investigate system access immediately",
		)
	}
	if models.HasThreat(threats, models.ThreatBruteForce) && len(attacks) == 0 {
		recs = append(recs, "Review and strengthen authentication mechanisms")
	}
	if len(recs) == 0 {
		recs = append(recs, "No critical issues detected - maintain current security monitoring")
	}
	return recs
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
