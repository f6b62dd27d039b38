// Package parser turns raw security log lines into structured entries.
package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dfrtlabs/loglens/internal/models"
	"github.com/dfrtlabs/loglens/internal/utils"
)

const (
	// MaxMessageLength bounds LogEntry.Message.
	MaxMessageLength = 500
	// MaxRawLength bounds LogEntry.RawContent.
	MaxRawLength = 1000
)

var (
	timestampPattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}[\sT]\d{2}:\d{2}:\d{2}`)
	ipPattern        = regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)
	userPattern      = regexp.MustCompile(`(?i)(?:user|username|account)[=:\s]+['"]?(\w+)['"]?`)
	eventIDPattern   = regexp.MustCompile(`(?i)(?:event\s*id|eventid)[=:\s]+(\d+)`)
)

// Match is the outcome of one optional field extraction.
type Match struct {
	Value string
	Found bool
}

func firstMatch(re *regexp.Regexp, s string) Match {
	loc := re.FindStringIndex(s)
	if loc == nil {
		return Match{}
	}
	return Match{Value: s[loc[0]:loc[1]], Found: true}
}

func firstGroup(re *regexp.Regexp, s string) Match {
	groups := re.FindStringSubmatch(s)
	if len(groups) < 2 {
		return Match{}
	}
	return Match{Value: groups[1], Found: true}
}

// ExtractTimestamp finds the first YYYY-MM-DD[ T]HH:MM:SS substring.
func ExtractTimestamp(line string) Match { return firstMatch(timestampPattern, line) }

// ExtractIP finds the first dotted quad. Octet ranges are not validated.
func ExtractIP(line string) Match { return firstMatch(ipPattern, line) }

// ExtractUser finds the word following user=, username:, account and similar keys.
func ExtractUser(line string) Match { return firstGroup(userPattern, line) }

// ExtractEventID finds the digits following "event id" or "eventid".
func ExtractEventID(line string) Match { return firstGroup(eventIDPattern, line) }

// ParseError reports a field on a single line that could not be decoded.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Options selects which optional fields are extracted.
type Options struct {
	// BasicFields enables timestamp, IP and user extraction.
	BasicFields bool
	// EventIDs enables event id extraction.
	EventIDs bool
}

// DefaultOptions extracts every field.
func DefaultOptions() Options {
	return Options{BasicFields: true, EventIDs: true}
}

// OptionsFrom maps analysis options onto parser options.
func OptionsFrom(opts models.AnalysisOptions) Options {
	return Options{BasicFields: opts.EnableBasicParsing, EventIDs: opts.EnableEventExtraction}
}

// Parser converts one raw line into a LogEntry. It holds no mutable state.
type Parser struct {
	opts Options
}

// New returns a Parser using the given options.
func New(opts Options) *Parser {
	return &Parser{opts: opts}
}

// Parse returns the entry for line, or ok=false when the line is blank.
// A non-nil error with ok=true reports a field that could not be decoded; the
// entry is still usable and the field keeps its zero value. An event id that
// overflows int is such a field.
func (p *Parser) Parse(line string, lineNumber int) (models.LogEntry, bool, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return models.LogEntry{}, false, nil
	}
	if lineNumber < 1 {
		lineNumber = 1
	}

	entry := models.LogEntry{
		LineNumber: lineNumber,
		Severity:   ClassifySeverity(trimmed),
		Message:    truncate(trimmed, MaxMessageLength),
		RawContent: truncate(line, MaxRawLength),
	}

	if p.opts.BasicFields {
		if m := ExtractTimestamp(trimmed); m.Found {
			entry.Timestamp = m.Value
		}
		if m := ExtractIP(trimmed); m.Found {
			entry.IPAddress = m.Value
		}
		if m := ExtractUser(trimmed); m.Found {
			entry.User = m.Value
		}
	}

	if p.opts.EventIDs {
		if m := ExtractEventID(trimmed); m.Found {
			id, err := strconv.Atoi(m.Value)
			if err != nil {
				return entry, true, &ParseError{
					Line: lineNumber,
					Err:  utils.NewKindError(utils.KindParse, "parse event id", m.Value, err),
				}
			}
			entry.EventID = id
		}
	}

	return entry, true, nil
}

// ClassifySeverity scans the line case-insensitively; the first matching rule wins.
func ClassifySeverity(line string) models.Severity {
	lower := strings.ToLower(line)
	switch {
	case containsAny(lower, "critical", "emergency", "alert"):
		return models.SeverityCritical
	case containsAny(lower, "error", "fail"):
		return models.SeverityError
	case strings.Contains(lower, "warn"):
		return models.SeverityWarning
	case containsAny(lower, "info", "information"):
		return models.SeverityInfo
	default:
		return models.SeverityNormal
	}
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
