package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/dfrtlabs/loglens/internal/models"
)

func TestParseExtractsFields(t *testing.T) {
	p := New(DefaultOptions())

	line := `2024-03-01 10:15:42 Failed login for user="admin" from 10.0.0.5 EventID=4625`
	entry, ok, err := p.Parse(line, 7)
	if err != nil || !ok {
		t.Fatalf("expected entry, got ok=%v err=%v", ok, err)
	}
	if entry.LineNumber != 7 {
		t.Errorf("expected line 7, got %d", entry.LineNumber)
	}
	if entry.Timestamp != "2024-03-01 10:15:42" {
		t.Errorf("unexpected timestamp %q", entry.Timestamp)
	}
	if entry.User != "admin" {
		t.Errorf("unexpected user %q", entry.User)
	}
	if entry.IPAddress != "10.0.0.5" {
		t.Errorf("unexpected ip %q", entry.IPAddress)
	}
	if entry.EventID != 4625 {
		t.Errorf("unexpected event id %d", entry.EventID)
	}
	if entry.Severity != models.SeverityError {
		t.Errorf("expected ERROR, got %s", entry.Severity)
	}
}

func TestParseBlankLine(t *testing.T) {
	p := New(DefaultOptions())
	for _, line := range []string{"", "   ", "\t"} {
		if _, ok, err := p.Parse(line, 1); ok || err != nil {
			t.Fatalf("expected blank line %q to be skipped, got ok=%v err=%v", line, ok, err)
		}
	}
}

func TestParseMissingFields(t *testing.T) {
	p := New(DefaultOptions())
	entry, ok, err := p.Parse("system heartbeat", 3)
	if err != nil || !ok {
		t.Fatalf("expected entry, got ok=%v err=%v", ok, err)
	}
	if entry.Timestamp != "" || entry.IPAddress != "" || entry.User != "" || entry.EventID != 0 {
		t.Fatalf("expected empty optional fields, got %+v", entry)
	}
	if entry.Severity != models.SeverityNormal {
		t.Fatalf("expected NORMAL, got %s", entry.Severity)
	}
}

func TestParseTruncates(t *testing.T) {
	p := New(DefaultOptions())
	line := "  " + strings.Repeat("x", 1200)
	entry, _, _ := p.Parse(line, 1)
	if len(entry.Message) != MaxMessageLength {
		t.Errorf("expected message length %d, got %d", MaxMessageLength, len(entry.Message))
	}
	if len(entry.RawContent) != MaxRawLength {
		t.Errorf("expected raw length %d, got %d", MaxRawLength, len(entry.RawContent))
	}
	if !strings.HasPrefix(entry.RawContent, "  x") {
		t.Errorf("raw content should keep the untrimmed line")
	}
}

func TestParseEventIDOverflow(t *testing.T) {
	p := New(DefaultOptions())
	entry, ok, err := p.Parse("2024-01-01 10:00:02 eventid=999999999999999999999999 failed login for user=root from 10.0.0.5", 12)
	if !ok {
		t.Fatalf("expected the entry to be kept")
	}
	var perr *ParseError
	if !errors.As(err, &perr) || perr.Line != 12 {
		t.Fatalf("expected ParseError for line 12, got %v", err)
	}
	if entry.EventID != 0 || entry.User != "root" || entry.IPAddress != "10.0.0.5" || entry.LineNumber != 12 {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if entry.Severity != models.SeverityError {
		t.Fatalf("expected error severity, got %s", entry.Severity)
	}
}

func TestParseOptionsDisableExtraction(t *testing.T) {
	p := New(Options{})
	entry, ok, err := p.Parse("2024-01-01 00:00:00 user=bob 1.2.3.4 event id: 1102", 1)
	if err != nil || !ok {
		t.Fatalf("unexpected ok=%v err=%v", ok, err)
	}
	if entry.Timestamp != "" || entry.User != "" || entry.IPAddress != "" || entry.EventID != 0 {
		t.Fatalf("expected no field extraction, got %+v", entry)
	}
}

func TestExtractUserVariants(t *testing.T) {
	cases := map[string]string{
		"USERNAME: alice logged in":  "alice",
		"account 'svc_backup' locked": "svc_backup",
		"User=Root":                   "Root",
	}
	for line, want := range cases {
		got := ExtractUser(line)
		if !got.Found || got.Value != want {
			t.Errorf("%q: expected %q, got %+v", line, want, got)
		}
	}
	if m := ExtractUser("no principal here"); m.Found {
		t.Errorf("expected no match, got %+v", m)
	}
}

func TestExtractEventIDVariants(t *testing.T) {
	for _, line := range []string{"Event ID: 1102", "EVENTID=1102", "event  id 1102"} {
		m := ExtractEventID(line)
		if !m.Found || m.Value != "1102" {
			t.Errorf("%q: expected 1102, got %+v", line, m)
		}
	}
}

func TestClassifySeverityPriority(t *testing.T) {
	cases := []struct {
		line string
		want models.Severity
	}{
		{"CRITICAL error: disk failed", models.SeverityCritical},
		{"emergency shutdown", models.SeverityCritical},
		{"security alert raised", models.SeverityCritical},
		{"login failure, warning issued", models.SeverityError},
		{"Error opening file", models.SeverityError},
		{"WARN: disk 90% info", models.SeverityWarning},
		{"Information: service started", models.SeverityInfo},
		{"user bob logged in", models.SeverityNormal},
	}
	for _, tc := range cases {
		for i := 0; i < 3; i++ {
			if got := ClassifySeverity(tc.line); got != tc.want {
				t.Fatalf("%q: expected %s, got %s", tc.line, tc.want, got)
			}
		}
	}
}
