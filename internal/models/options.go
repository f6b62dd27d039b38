package models

const (
	// DefaultBruteForceThreshold is the attempt count that turns an IP cluster into an attack.
	DefaultBruteForceThreshold = 5
	// DefaultBruteForceWindowSeconds is the nominal correlation window.
	DefaultBruteForceWindowSeconds = 300

	minBruteForceThreshold     = 1
	minBruteForceWindowSeconds = 60
)

// AnalysisOptions enables pipeline stages and tunes the brute-force correlator.
type AnalysisOptions struct {
	EnableBasicParsing           bool `json:"enableBasicParsing" yaml:"enableBasicParsing"`
	EnableEventExtraction        bool `json:"enableEventExtraction" yaml:"enableEventExtraction"`
	EnableLoginAnalysis          bool `json:"enableLoginAnalysis" yaml:"enableLoginAnalysis"`
	EnableFailedLoginDetection   bool `json:"enableFailedLoginDetection" yaml:"enableFailedLoginDetection"`
	EnableBruteForceDetection    bool `json:"enableBruteForceDetection" yaml:"enableBruteForceDetection"`
	EnableLogTamperingDetection  bool `json:"enableLogTamperingDetection" yaml:"enableLogTamperingDetection"`
	EnableCrossCorrelation       bool `json:"enableCrossCorrelation" yaml:"enableCrossCorrelation"`
	EnableUserProfiling          bool `json:"enableUserProfiling" yaml:"enableUserProfiling"`
	EnableTimelineReconstruction bool `json:"enableTimelineReconstruction" yaml:"enableTimelineReconstruction"`
	BruteForceThreshold          int  `json:"bruteForceThreshold" yaml:"bruteForceThreshold"`
	BruteForceWindowSeconds      int  `json:"bruteForceWindowSeconds" yaml:"bruteForceWindowSeconds"`
}

// DefaultAnalysisOptions returns every stage enabled with default thresholds.
func DefaultAnalysisOptions() AnalysisOptions {
	return AnalysisOptions{
		EnableBasicParsing:           true,
		EnableEventExtraction:        true,
		EnableLoginAnalysis:          true,
		EnableFailedLoginDetection:   true,
		EnableBruteForceDetection:    true,
		EnableLogTamperingDetection:  true,
		EnableCrossCorrelation:       true,
		EnableUserProfiling:          true,
		EnableTimelineReconstruction: true,
		BruteForceThreshold:          DefaultBruteForceThreshold,
		BruteForceWindowSeconds:      DefaultBruteForceWindowSeconds,
	}
}

// Normalize applies defaults to unset thresholds and enforces their floors.
func (o AnalysisOptions) Normalize() AnalysisOptions {
	if o.BruteForceThreshold == 0 {
		o.BruteForceThreshold = DefaultBruteForceThreshold
	}
	if o.BruteForceThreshold < minBruteForceThreshold {
		o.BruteForceThreshold = minBruteForceThreshold
	}
	if o.BruteForceWindowSeconds == 0 {
		o.BruteForceWindowSeconds = DefaultBruteForceWindowSeconds
	}
	if o.BruteForceWindowSeconds < minBruteForceWindowSeconds {
		o.BruteForceWindowSeconds = minBruteForceWindowSeconds
	}
	return o
}
