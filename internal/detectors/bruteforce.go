package detectors

import (
	"fmt"
	"strings"

	"github.com/dfrtlabs/loglens/internal/models"
)

// BruteForceCorrelator clusters failed or denied attempts by source IP.
//
// The configured window is recorded on every attack but does not bound grouping:
// all attempts from an IP in the run belong to one cluster.
type BruteForceCorrelator struct {
	threshold      int
	windowSeconds  int
	collectTargets bool
}

// NewBruteForceCorrelator builds a correlator from normalized analysis options.
func NewBruteForceCorrelator(opts models.AnalysisOptions) *BruteForceCorrelator {
	opts = opts.Normalize()
	return &BruteForceCorrelator{
		threshold:      opts.BruteForceThreshold,
		windowSeconds:  opts.BruteForceWindowSeconds,
		collectTargets: opts.EnableCrossCorrelation,
	}
}

type ipCluster struct {
	ip       string
	attempts []*models.LogEntry
}

// Correlate returns one attack per IP whose attempt count reaches the threshold,
// in the order the IPs were first encountered.
func (c *BruteForceCorrelator) Correlate(entries []models.LogEntry) []models.BruteForceAttack {
	attacks := make([]models.BruteForceAttack, 0)
	if len(entries) == 0 {
		return attacks
	}

	index := make(map[string]int)
	clusters := make([]*ipCluster, 0)
	for i := range entries {
		entry := &entries[i]
		if entry.IPAddress == "" {
			continue
		}
		if !containsAny(strings.ToLower(entry.Message), "failed", "denied") {
			continue
		}
		pos, ok := index[entry.IPAddress]
		if !ok {
			pos = len(clusters)
			index[entry.IPAddress] = pos
			clusters = append(clusters, &ipCluster{ip: entry.IPAddress})
		}
		clusters[pos].attempts = append(clusters[pos].attempts, entry)
	}

	for _, cluster := range clusters {
		if len(cluster.attempts) < c.threshold {
			continue
		}
		attacks = append(attacks, c.attackFrom(cluster))
	}
	return attacks
}

func (c *BruteForceCorrelator) attackFrom(cluster *ipCluster) models.BruteForceAttack {
	first := cluster.attempts[0]
	last := cluster.attempts[len(cluster.attempts)-1]
	n := len(cluster.attempts)

	locked := false
	targets := newOrderedSet()
	for _, a := range cluster.attempts {
		if strings.Contains(strings.ToLower(a.Message), "locked") {
			locked = true
		}
		if c.collectTargets && a.User != "" {
			targets.Add(a.User)
		}
	}

	return models.BruteForceAttack{
		TargetUser:      orDefault(first.User, unknownValue),
		TargetUsers:     targets.Items(),
		SourceIP:        cluster.ip,
		StartTime:       first.Timestamp,
		EndTime:         last.Timestamp,
		AttemptCount:    n,
		AccountLocked:   locked,
		WindowSeconds:   c.windowSeconds,
		ConfidenceScore: clamp(0.5+float64(n)*0.05, 0.5, 0.99),
		Recommendation:  fmt.Sprintf("Block source IP %s, reset affected passwords, enable MFA", cluster.ip),
		RelatedEntries:  n,
	}
}
