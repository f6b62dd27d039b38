package models

// ThreatType enumerates the detection rule families.
type ThreatType string

const (
	ThreatBruteForce   ThreatType = "BRUTE_FORCE"
	ThreatLogTampering ThreatType = "LOG_TAMPERING"
)

// Threat is a detected security issue summarising one or more entries.
type Threat struct {
	Type            ThreatType `json:"type"`
	Severity        Severity   `json:"severity"`
	Description     string     `json:"description"`
	Source          string     `json:"source"`
	Target          string     `json:"target"`
	Timestamp       string     `json:"timestamp"`
	ConfidenceScore float64    `json:"confidenceScore"`
	Recommendation  string     `json:"recommendation"`
	RelatedEntries  int        `json:"relatedEntries"`
}

// BruteForceAttack is one source IP's correlated cluster of failed attempts.
type BruteForceAttack struct {
	TargetUser      string   `json:"targetUser"`
	TargetUsers     []string `json:"targetUsers"`
	SourceIP        string   `json:"sourceIP"`
	StartTime       string   `json:"startTime"`
	EndTime         string   `json:"endTime"`
	AttemptCount    int      `json:"attemptCount"`
	AccountLocked   bool     `json:"accountLocked"`
	WindowSeconds   int      `json:"windowSeconds"`
	ConfidenceScore float64  `json:"confidenceScore"`
	Recommendation  string   `json:"recommendation"`
	RelatedEntries  int      `json:"relatedEntries"`
}

// UserProfile aggregates the activity of one case-insensitive username.
type UserProfile struct {
	Username         string   `json:"username"`
	TotalActivities  int      `json:"totalActivities"`
	FailedLogins     int      `json:"failedLogins"`
	SuccessfulLogins int      `json:"successfulLogins"`
	SourceIPs        []string `json:"sourceIPs"`
	FirstSeen        string   `json:"firstSeen"`
	LastSeen         string   `json:"lastSeen"`
	RiskScore        float64  `json:"riskScore"`
	Anomalies        []string `json:"anomalies"`
}

// TimelineEvent is one significant entry placed on the incident timeline.
type TimelineEvent struct {
	Timestamp   string   `json:"timestamp"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
	Actor       string   `json:"actor"`
	IPAddress   string   `json:"ipAddress"`
	LineNumber  int      `json:"lineNumber"`
}

// Timeline is the chronologically ordered subset of non-routine entries.
type Timeline struct {
	Title           string          `json:"title"`
	StartTime       string          `json:"startTime"`
	EndTime         string          `json:"endTime"`
	Summary         string          `json:"summary"`
	Severity        Severity        `json:"severity"`
	EventCount      int             `json:"eventCount"`
	Events          []TimelineEvent `json:"events"`
	MitigationSteps []string        `json:"mitigationSteps"`
}
