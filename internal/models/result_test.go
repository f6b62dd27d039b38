package models

import "testing"

func TestHasThreat(t *testing.T) {
	threats := []Threat{{Type: ThreatLogTampering}}
	if !HasThreat(threats, ThreatLogTampering) || HasThreat(threats, ThreatBruteForce) {
		t.Fatalf("unexpected threat lookup over %+v", threats)
	}

	result := &AnalysisResult{Threats: threats}
	if !result.HasThreat(ThreatLogTampering) {
		t.Fatalf("expected result to report tampering")
	}
	var empty *AnalysisResult
	if empty.HasThreat(ThreatLogTampering) {
		t.Fatalf("nil result must report no threats")
	}
}
