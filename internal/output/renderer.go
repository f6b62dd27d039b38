// Package output renders analysis results for interactive terminals.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dfrtlabs/loglens/internal/models"
)

var (
	styleTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("39")).
			Padding(0, 1)
	styleHeading  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).Underline(true)
	styleLabel    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	styleInfo     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	styleWarn     = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	styleError    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	styleCritical = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("196")).
			Bold(true)
	styleOK = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

const maxTimelineRows = 20

// Renderer writes a colorized summary of an AnalysisResult.
type Renderer struct {
	w io.Writer
}

// NewRenderer returns a Renderer writing to w.
func NewRenderer(w io.Writer) *Renderer {
	return &Renderer{w: w}
}

// Render prints the summary, threats, attacks, risky profiles, timeline head and recommendations.
func (r *Renderer) Render(result *models.AnalysisResult) error {
	if result == nil {
		_, err := fmt.Fprintln(r.w, styleInfo.Render("no analysis result"))
		return err
	}
	var b strings.Builder

	b.WriteString(styleTitle.Render("loglens analysis " + result.AnalysisID))
	b.WriteString("\n\n")

	status := styleOK.Render("completed")
	if len(result.FailedFiles) > 0 {
		status = styleWarn.Render(result.ErrorMessage)
	}
	field(&b, "Status", status)
	field(&b, "Files", fmt.Sprintf("%d analyzed, %d ok, %d failed",
		result.TotalFilesAnalyzed, result.SuccessfulFiles, len(result.FailedFiles)))
	field(&b, "Entries", fmt.Sprintf("%d parsed, %d skipped", result.TotalEntriesParsed, result.SkippedLines))
	field(&b, "Events", fmt.Sprintf("%s normal, %s warning, %s critical",
		styleInfo.Render(fmt.Sprint(result.Statistics.NormalEvents)),
		styleWarn.Render(fmt.Sprint(result.Statistics.WarningEvents)),
		styleError.Render(fmt.Sprint(result.Statistics.CriticalEvents))))
	field(&b, "Risk", riskStyle(result.DetectionSummary.OverallRiskScore).
		Render(fmt.Sprintf("%.1f%%", result.DetectionSummary.OverallRiskScore*100)))

	for _, f := range result.FailedFiles {
		fmt.Fprintf(&b, "  %s %s: %s\n", styleError.Render("x"), f.Path, f.Error)
	}

	if len(result.Threats) > 0 {
		heading(&b, "Threats")
		for _, t := range result.Threats {
			fmt.Fprintf(&b, "  %s %s %s\n    %s %s\n",
				SeverityTag(t.Severity), t.Type, t.Description,
				styleLabel.Render(fmt.Sprintf("confidence %.0f%%", t.ConfidenceScore*100)),
				t.Recommendation)
		}
	}

	if len(result.BruteForceAttacks) > 0 {
		heading(&b, "Brute-force sources")
		for _, a := range result.BruteForceAttacks {
			locked := ""
			if a.AccountLocked {
				locked = styleError.Render(" account locked")
			}
			fmt.Fprintf(&b, "  %-15s %4d attempts against %s%s\n", a.SourceIP, a.AttemptCount, a.TargetUser, locked)
		}
	}

	risky := make([]models.UserProfile, 0)
	for _, p := range result.UserProfiles {
		if len(p.Anomalies) > 0 {
			risky = append(risky, p)
		}
	}
	if len(risky) > 0 {
		heading(&b, "Users with anomalies")
		for _, p := range risky {
			fmt.Fprintf(&b, "  %s %s: %s\n", riskStyle(p.RiskScore).Render(fmt.Sprintf("%3.0f%%", p.RiskScore*100)),
				p.Username, strings.Join(p.Anomalies, "; "))
		}
	}

	if tl := result.Timeline; tl != nil && len(tl.Events) > 0 {
		heading(&b, fmt.Sprintf("Timeline (%s)", tl.Summary))
		for i, ev := range tl.Events {
			if i == maxTimelineRows {
				fmt.Fprintf(&b, "  %s\n", styleLabel.Render(fmt.Sprintf("... %d more", len(tl.Events)-maxTimelineRows)))
				break
			}
			fmt.Fprintf(&b, "  %-19s %s %s %s\n", ev.Timestamp, SeverityTag(ev.Severity), ev.Title, styleLabel.Render(ev.Actor+"@"+ev.IPAddress))
		}
	}

	heading(&b, "Recommendations")
	for i, rec := range result.Recommendations {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, rec)
	}

	_, err := io.WriteString(r.w, b.String())
	return err
}

// SeverityTag renders a fixed-width, colored severity label.
func SeverityTag(sev models.Severity) string {
	padded := fmt.Sprintf("%-8s", sev)
	switch sev {
	case models.SeverityCritical, models.SeverityAlert:
		return styleCritical.Render(padded)
	case models.SeverityError:
		return styleError.Render(padded)
	case models.SeverityWarning:
		return styleWarn.Render(padded)
	default:
		return styleInfo.Render(padded)
	}
}

func riskStyle(score float64) lipgloss.Style {
	switch {
	case score >= 0.7:
		return styleCritical
	case score >= 0.4:
		return styleError
	case score > 0:
		return styleWarn
	default:
		return styleOK
	}
}

func field(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "%s %s\n", styleLabel.Render(fmt.Sprintf("%-8s", label+":")), value)
}

func heading(b *strings.Builder, text string) {
	b.WriteString("\n")
	b.WriteString(styleHeading.Render(text))
	b.WriteString("\n")
}
