// Package export renders analysis results as JSON, CSV and a plain-text forensic report.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dfrtlabs/loglens/internal/models"
	"github.com/dfrtlabs/loglens/internal/utils"
)

const maxCSVMessage = 1000

// CSVHeader is the fixed column order of entry exports.
var CSVHeader = []string{"Timestamp", "EventID", "User", "Source", "IPAddress", "Severity", "Message"}

// JSON returns the indented JSON document for result. Nil collections are
// emitted as empty arrays and non-finite scores as 0.
func JSON(result *models.AnalysisResult) ([]byte, error) {
	if result == nil {
		return nil, utils.NewKindError(utils.KindInvalidInput, "export json", "no analysis result", nil)
	}
	data, err := json.MarshalIndent(Normalize(*result), "", "  ")
	if err != nil {
		return nil, utils.NewAppError("export json", "marshal result", err)
	}
	return data, nil
}

// Normalize returns a copy of result whose collections are non-nil and whose floats are finite.
func Normalize(result models.AnalysisResult) models.AnalysisResult {
	result.FailedFiles = nonNil(result.FailedFiles)
	result.Recommendations = nonNil(result.Recommendations)
	result.Entries = nonNil(result.Entries)
	result.DetectionSummary.OverallRiskScore = finite(result.DetectionSummary.OverallRiskScore)

	threats := make([]models.Threat, len(result.Threats))
	for i, t := range result.Threats {
		t.ConfidenceScore = finite(t.ConfidenceScore)
		threats[i] = t
	}
	result.Threats = threats
	attacks := make([]models.BruteForceAttack, len(result.BruteForceAttacks))
	for i, a := range result.BruteForceAttacks {
		a.TargetUsers = nonNil(a.TargetUsers)
		a.ConfidenceScore = finite(a.ConfidenceScore)
		attacks[i] = a
	}
	result.BruteForceAttacks = attacks

	profiles := make([]models.UserProfile, len(result.UserProfiles))
	for i, p := range result.UserProfiles {
		p.SourceIPs = nonNil(p.SourceIPs)
		p.Anomalies = nonNil(p.Anomalies)
		p.RiskScore = finite(p.RiskScore)
		profiles[i] = p
	}
	result.UserProfiles = profiles

	if result.Timeline != nil {
		tl := *result.Timeline
		tl.Events = nonNil(tl.Events)
		tl.MitigationSteps = nonNil(tl.MitigationSteps)
		result.Timeline = &tl
	}
	return result
}

// CSV writes entries with RFC 4180 quoting. The header is always written.
func CSV(w io.Writer, entries []models.LogEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, e := range entries {
		severity := string(e.Severity)
		if severity == "" {
			severity = "UNKNOWN"
		}
		record := []string{
			e.Timestamp,
			strconv.Itoa(e.EventID),
			e.User,
			e.Source,
			e.IPAddress,
			severity,
			truncate(e.Message, maxCSVMessage),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv line %d: %w", e.LineNumber, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

const (
	ruleLine    = "================================================================================"
	dividerLine = "--------------------------------------------------------------------------------"
)

// Report renders the fixed-layout forensic summary. generated stamps the report header.
func Report(result *models.AnalysisResult, generated time.Time) string {
	if result == nil {
		return "No analysis results available\n"
	}
	stats := result.Statistics
	detection := result.DetectionSummary

	lines := []string{
		"",
		ruleLine,
		"                       LOGLENS - FORENSIC REPORT",
		ruleLine,
		"",
		"Analysis ID: " + orNA(result.AnalysisID),
		"Generated:   " + utils.FormatISO(generated),
		fmt.Sprintf("Duration:    %d ms", result.ProcessingTimeMs),
		dividerLine,
		"                              EXECUTIVE SUMMARY",
		dividerLine,
		"",
		fmt.Sprintf("Files Analyzed:     %d", result.TotalFilesAnalyzed),
		fmt.Sprintf("Successful:         %d", result.SuccessfulFiles),
		fmt.Sprintf("Failed:             %d", len(result.FailedFiles)),
		fmt.Sprintf("Total Entries:      %d", result.TotalEntriesParsed),
		fmt.Sprintf("Normal Events:      %d", stats.NormalEvents),
		fmt.Sprintf("Warning Events:     %d", stats.WarningEvents),
		fmt.Sprintf("Critical Events:    %d", stats.CriticalEvents),
		fmt.Sprintf("Threats Detected:   %d", detection.TotalThreats),
		fmt.Sprintf("Critical Threats:   %d", detection.CriticalThreats),
		fmt.Sprintf("Risk Score:         %.1f%%", finite(detection.OverallRiskScore)*100),
	}

	if len(result.Threats) > 0 {
		lines = append(lines, dividerLine, "                                DETECTED THREATS", dividerLine, "")
		for _, t := range result.Threats {
			lines = append(lines, fmt.Sprintf("[%s] %s: %s (confidence %.0f%%)", t.Severity, t.Type, t.Description, t.ConfidenceScore*100))
		}
	}

	lines = append(lines, dividerLine, "                             RECOMMENDATIONS", dividerLine, "")
	if len(result.Recommendations) == 0 {
		lines = append(lines, "(No specific recommendations)")
	}
	for i, r := range result.Recommendations {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, r))
	}

	lines = append(lines, "", ruleLine, "                              END OF REPORT", ruleLine, "")
	return strings.Join(lines, "\n")
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
