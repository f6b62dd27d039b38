package detectors

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dfrtlabs/loglens/internal/models"
	"github.com/dfrtlabs/loglens/internal/utils"
)

const (
	// DefaultTimelineTitle names timelines built without an explicit title.
	DefaultTimelineTitle = "Security Incident Timeline"
	// EmptyTimelineSummary is reported when the run produced no entries.
	EmptyTimelineSummary = "No timeline events available"

	maxEventDescription = 250
)

var mitigationSteps = []string{
	"Review timeline events in chronological order",
	"Identify and remediate root cause",
	"Block compromised accounts and IP addresses",
	"Preserve evidence and document chain of custody",
	"Implement preventive measures to stop recurrence",
}

// TimelineBuilder orders non-routine entries into an incident timeline.
type TimelineBuilder struct {
	title string
}

// NewTimelineBuilder constructs a builder; an empty title selects DefaultTimelineTitle.
func NewTimelineBuilder(title string) *TimelineBuilder {
	if strings.TrimSpace(title) == "" {
		title = DefaultTimelineTitle
	}
	return &TimelineBuilder{title: title}
}

// Build filters out NORMAL, INFO and DEBUG entries and sorts the rest by timestamp.
// Entries with equal timestamps keep their input order.
func (b *TimelineBuilder) Build(entries []models.LogEntry) models.Timeline {
	if len(entries) == 0 {
		return models.Timeline{
			Title:           b.title,
			Summary:         EmptyTimelineSummary,
			Severity:        models.SeverityInfo,
			Events:          []models.TimelineEvent{},
			MitigationSteps: []string{},
		}
	}

	significant := make([]models.LogEntry, 0)
	for _, e := range entries {
		if !e.Severity.Routine() {
			significant = append(significant, e)
		}
	}
	slices.SortStableFunc(significant, func(a, b models.LogEntry) int {
		return strings.Compare(utils.TimestampKey(a.Timestamp), utils.TimestampKey(b.Timestamp))
	})

	events := make([]models.TimelineEvent, 0, len(significant))
	hasCritical, hasWarning := false, false
	for _, e := range significant {
		switch e.Severity {
		case models.SeverityCritical, models.SeverityAlert:
			hasCritical = true
		case models.SeverityWarning:
			hasWarning = true
		}
		events = append(events, models.TimelineEvent{
			Timestamp:   e.Timestamp,
			Title:       EventTitle(e.Message),
			Description: truncateRunes(e.Message, maxEventDescription),
			Severity:    e.Severity,
			Actor:       orDefault(e.User, "Unknown"),
			IPAddress:   orDefault(e.IPAddress, "N/A"),
			LineNumber:  e.LineNumber,
		})
	}

	tl := models.Timeline{
		Title:           b.title,
		Summary:         summarize(len(events)),
		Severity:        models.SeverityInfo,
		EventCount:      len(events),
		Events:          events,
		MitigationSteps: slices.Clone(mitigationSteps),
	}
	if hasCritical {
		tl.Severity = models.SeverityCritical
	} else if hasWarning {
		tl.Severity = models.SeverityWarning
	}
	if len(events) > 0 {
		tl.StartTime = events[0].Timestamp
		tl.EndTime = events[len(events)-1].Timestamp
	}
	return tl
}

func summarize(n int) string {
	if n == 1 {
		return "Timeline contains 1 significant event"
	}
	return fmt.Sprintf("Timeline contains %d significant events", n)
}

// EventTitle classifies a message into a human-readable timeline title.
func EventTitle(message string) string {
	msg := strings.ToLower(message)
	switch {
	case strings.Contains(msg, "failed") && containsAny(msg, "login", "logon"):
		return "Failed Login Attempt"
	case strings.Contains(msg, "success") && strings.Contains(msg, "login"):
		return "Successful Login"
	case containsAny(msg, "privilege", "elevated"):
		return "Privilege Escalation Event"
	case strings.Contains(msg, "account") && strings.Contains(msg, "lock"):
		return "Account Lockout Event"
	case containsAny(msg, "access", "permission"):
		return "Access Control Event"
	case containsAny(msg, "error", "fail"):
		return "Error/Failure Event"
	default:
		return "System Event"
	}
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
