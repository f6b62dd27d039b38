package export

import (
	"strings"
	"testing"
	"time"

	"github.com/dfrtlabs/loglens/internal/utils"
)

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{
		"":       FormatJSON,
		"JSON":   FormatJSON,
		" csv ":  FormatCSV,
		"text":   FormatText,
		"report": FormatText,
	}
	for in, want := range cases {
		got, err := ParseFormat(in)
		if err != nil {
			t.Fatalf("ParseFormat(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseFormat(%q) = %q, want %q", in, got, want)
		}
	}

	if _, err := ParseFormat("xml"); utils.KindOf(err) != utils.KindInvalidInput {
		t.Fatalf("expected invalid input for xml, got %v", err)
	}
}

func TestRenderFormats(t *testing.T) {
	result := sampleResult()
	generated := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	data, err := Render(result, FormatCSV, generated)
	if err != nil {
		t.Fatalf("csv: %v", err)
	}
	if !strings.HasPrefix(string(data), "Timestamp,EventID,User,Source,IPAddress,Severity,Message\n") {
		t.Fatalf("unexpected csv header: %q", data)
	}
	if !strings.Contains(string(data), ",1102,") {
		t.Fatalf("csv missing entry: %q", data)
	}

	data, err = Render(result, FormatText, generated)
	if err != nil {
		t.Fatalf("text: %v", err)
	}
	if !strings.Contains(string(data), "LOGLENS - FORENSIC REPORT") {
		t.Fatalf("text export missing title")
	}

	data, err = Render(result, FormatJSON, generated)
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	if !strings.Contains(string(data), `"analysisId": "LL-abcdef12-1700000000000"`) {
		t.Fatalf("json export missing analysis id: %s", data)
	}

	if FormatCSV.ContentType() != "text/csv" || FormatJSON.ContentType() != "application/json" {
		t.Fatalf("unexpected content types")
	}
}

func TestRenderWithoutResult(t *testing.T) {
	if _, err := Render(nil, FormatCSV, time.Now()); utils.KindOf(err) != utils.KindInvalidInput {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := Render(nil, Format("yaml"), time.Now()); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}
