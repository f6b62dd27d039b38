package models

// FileFailure records one input file that could not be processed.
type FileFailure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// Statistics counts parsed entries by severity bucket.
type Statistics struct {
	TotalEntries   int `json:"totalEntries"`
	NormalEvents   int `json:"normalEvents"`
	WarningEvents  int `json:"warningEvents"`
	CriticalEvents int `json:"criticalEvents"`
}

// DetectionSummary condenses the threat list of a run.
type DetectionSummary struct {
	TotalThreats     int     `json:"totalThreats"`
	CriticalThreats  int     `json:"criticalThreats"`
	WarningThreats   int     `json:"warningThreats"`
	OverallRiskScore float64 `json:"overallRiskScore"`
}

// AnalysisResult is the immutable outcome of one analysis run.
type AnalysisResult struct {
	AnalysisID         string             `json:"analysisId"`
	Success            bool               `json:"success"`
	ErrorMessage       string             `json:"errorMessage"`
	StartTime          string             `json:"startTime"`
	EndTime            string             `json:"endTime"`
	ProcessingTimeMs   int64              `json:"processingTimeMs"`
	TotalFilesAnalyzed int                `json:"totalFilesAnalyzed"`
	SuccessfulFiles    int                `json:"successfulFiles"`
	FailedFiles        []FileFailure      `json:"failedFiles"`
	TotalEntriesParsed int                `json:"totalEntriesParsed"`
	SkippedLines       int                `json:"skippedLines"`
	Statistics         Statistics         `json:"statistics"`
	DetectionSummary   DetectionSummary   `json:"detectionSummary"`
	BruteForceAttacks  []BruteForceAttack `json:"bruteForceAttacks"`
	Threats            []Threat           `json:"threats"`
	UserProfiles       []UserProfile      `json:"userProfiles"`
	Timeline           *Timeline          `json:"timeline"`
	Recommendations    []string           `json:"recommendations"`
	Entries            []LogEntry         `json:"entries"`
}

// HasThreat reports whether any threat of the given type was raised.
func (r *AnalysisResult) HasThreat(kind ThreatType) bool {
	if r == nil {
		return false
	}
	return HasThreat(r.Threats, kind)
}

// HasThreat reports whether threats contains one of the given type.
func HasThreat(threats []Threat, kind ThreatType) bool {
	for _, t := range threats {
		if t.Type == kind {
			return true
		}
	}
	return false
}
