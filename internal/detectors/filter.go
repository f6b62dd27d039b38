package detectors

import (
	"strings"

	"github.com/dfrtlabs/loglens/internal/models"
)

// DefaultEntryLimit caps FilterEntries when no positive limit is given.
const DefaultEntryLimit = 1000

// EntryFilter narrows a run's entries. Empty fields match everything.
type EntryFilter struct {
	Keyword  string `json:"keyword"`
	Severity string `json:"severity"`
	User     string `json:"user"`
	IP       string `json:"ip"`
}

// FilterEntries returns at most limit entries matching every non-empty filter field,
// preserving input order. Keyword and user comparisons ignore case.
func FilterEntries(entries []models.LogEntry, filter EntryFilter, limit int) []models.LogEntry {
	if limit <= 0 {
		limit = DefaultEntryLimit
	}
	keyword := strings.ToLower(strings.TrimSpace(filter.Keyword))
	severity := strings.ToUpper(strings.TrimSpace(filter.Severity))
	user := strings.ToLower(strings.TrimSpace(filter.User))
	ip := strings.TrimSpace(filter.IP)

	out := make([]models.LogEntry, 0)
	for _, e := range entries {
		if len(out) >= limit {
			break
		}
		if keyword != "" && !strings.Contains(strings.ToLower(e.Message), keyword) {
			continue
		}
		if severity != "" && strings.ToUpper(string(e.Severity)) != severity {
			continue
		}
		if user != "" && strings.ToLower(e.User) != user {
			continue
		}
		if ip != "" && e.IPAddress != ip {
			continue
		}
		out = append(out, e)
	}
	return out
}
