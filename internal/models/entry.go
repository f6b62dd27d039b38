package models

import "strings"

// LogEntry is one structured record derived from a single raw log line.
type LogEntry struct {
	LineNumber int      `json:"lineNumber"`
	Source     string   `json:"source"`
	Timestamp  string   `json:"timestamp"`
	EventID    int      `json:"eventId"`
	User       string   `json:"user"`
	IPAddress  string   `json:"ipAddress"`
	Severity   Severity `json:"severity"`
	Message    string   `json:"message"`
	RawContent string   `json:"rawContent"`
}

// Severity captures the keyword-derived level of an entry, threat or timeline.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityAlert    Severity = "ALERT"
	SeverityError    Severity = "ERROR"
	SeverityWarning  Severity = "WARNING"
	SeverityInfo     Severity = "INFO"
	SeverityNormal   Severity = "NORMAL"
	SeverityDebug    Severity = "DEBUG"
)

// Routine reports whether the severity is excluded from incident timelines.
func (s Severity) Routine() bool {
	switch s {
	case SeverityNormal, SeverityInfo, SeverityDebug, "":
		return true
	default:
		return false
	}
}

// ParseSeverity maps a case-insensitive name onto a known Severity.
func ParseSeverity(value string) (Severity, bool) {
	switch Severity(strings.ToUpper(strings.TrimSpace(value))) {
	case SeverityCritical:
		return SeverityCritical, true
	case SeverityAlert:
		return SeverityAlert, true
	case SeverityError:
		return SeverityError, true
	case SeverityWarning, "WARN":
		return SeverityWarning, true
	case SeverityInfo:
		return SeverityInfo, true
	case SeverityNormal:
		return SeverityNormal, true
	case SeverityDebug:
		return SeverityDebug, true
	default:
		return "", false
	}
}
