package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/dfrtlabs/loglens/internal/models"
)

func counterValue(t *testing.T, c prometheus.Metric) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("second register: %v", err)
	}
}

func TestObserveAnalysis(t *testing.T) {
	beforeEntries := counterValue(t, entriesParsedTotal)
	beforeTamper := counterValue(t, threatsDetectedTotal.WithLabelValues(string(models.ThreatLogTampering)))
	beforePartial := counterValue(t, analysesTotal.WithLabelValues(OutcomePartial))

	result := &models.AnalysisResult{
		Success:            true,
		TotalEntriesParsed: 12,
		FailedFiles:        []models.FileFailure{{Path: "x"}},
		Threats:            []models.Threat{{Type: models.ThreatLogTampering}},
	}
	if got := ObserveAnalysis(time.Second, result); got != OutcomePartial {
		t.Fatalf("expected partial outcome, got %s", got)
	}

	if d := counterValue(t, entriesParsedTotal) - beforeEntries; d != 12 {
		t.Fatalf("expected 12 entries counted, got %v", d)
	}
	if d := counterValue(t, threatsDetectedTotal.WithLabelValues(string(models.ThreatLogTampering))) - beforeTamper; d != 1 {
		t.Fatalf("expected one tampering threat counted, got %v", d)
	}
	if d := counterValue(t, analysesTotal.WithLabelValues(OutcomePartial)) - beforePartial; d != 1 {
		t.Fatalf("expected one partial run counted, got %v", d)
	}
	if ObserveAnalysis(-time.Second, nil) != OutcomeError {
		t.Fatalf("nil result must count as error")
	}
}

func TestOutcome(t *testing.T) {
	if Outcome(&models.AnalysisResult{Success: true}) != OutcomeSuccess {
		t.Fatalf("expected success")
	}
	if Outcome(&models.AnalysisResult{Success: false, FailedFiles: []models.FileFailure{{}}}) != OutcomeError {
		t.Fatalf("expected error when no file succeeded")
	}
}
