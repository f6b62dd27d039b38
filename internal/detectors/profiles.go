package detectors

import (
	"fmt"
	"strings"

	"github.com/dfrtlabs/loglens/internal/models"
	"github.com/dfrtlabs/loglens/internal/utils"
)

const (
	elevatedFailuresAbove = 10
	manyLocationsAbove    = 3
	highFailureRatioAbove = 0.5
)

// orderedSet deduplicates strings while preserving first insertion order.
type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{}), items: make([]string, 0)}
}

func (s *orderedSet) Add(v string) {
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}

func (s *orderedSet) Len() int { return len(s.items) }

// Items returns a copy of the members in insertion order.
func (s *orderedSet) Items() []string {
	return append(make([]string, 0, len(s.items)), s.items...)
}

type profileAccumulator struct {
	profile models.UserProfile
	ips     *orderedSet
}

// ProfileBuilder aggregates per-user behaviour keyed by lower-cased username.
type ProfileBuilder struct{}

// NewProfileBuilder constructs a profile builder.
func NewProfileBuilder() *ProfileBuilder {
	return &ProfileBuilder{}
}

// Build returns one profile per distinct case-insensitive username, in first-seen order.
func (b *ProfileBuilder) Build(entries []models.LogEntry) []models.UserProfile {
	order := make([]string, 0)
	accs := make(map[string]*profileAccumulator)

	for _, entry := range entries {
		user := strings.TrimSpace(entry.User)
		if user == "" {
			continue
		}
		key := strings.ToLower(user)
		acc, ok := accs[key]
		if !ok {
			acc = &profileAccumulator{
				profile: models.UserProfile{
					Username:  entry.User,
					FirstSeen: entry.Timestamp,
					LastSeen:  entry.Timestamp,
				},
				ips: newOrderedSet(),
			}
			accs[key] = acc
			order = append(order, key)
		}
		p := &acc.profile
		p.TotalActivities++
		if entry.IPAddress != "" {
			acc.ips.Add(entry.IPAddress)
		}
		if entry.Timestamp != "" {
			if p.FirstSeen == "" || utils.TimestampBefore(entry.Timestamp, p.FirstSeen) {
				p.FirstSeen = entry.Timestamp
			}
			if utils.TimestampBefore(p.LastSeen, entry.Timestamp) {
				p.LastSeen = entry.Timestamp
			}
		}

		msg := strings.ToLower(entry.Message)
		switch {
		case containsAny(msg, "failed", "denied"):
			p.FailedLogins++
		case containsAny(msg, "success", "logged in", "authenticated"):
			p.SuccessfulLogins++
		}
	}

	profiles := make([]models.UserProfile, 0, len(order))
	for _, key := range order {
		acc := accs[key]
		p := acc.profile
		p.SourceIPs = acc.ips.Items()
		p.RiskScore, p.Anomalies = scoreProfile(p.TotalActivities, p.FailedLogins, acc.ips.Len())
		profiles = append(profiles, p)
	}
	return profiles
}

func scoreProfile(total, failed, distinctIPs int) (float64, []string) {
	failRatio := 0.0
	if total > 0 {
		failRatio = float64(failed) / float64(total)
	}

	score := failRatio * 0.5
	if distinctIPs > manyLocationsAbove {
		score += 0.3
	}
	if failed > elevatedFailuresAbove {
		score += 0.2
	}

	anomalies := make([]string, 0)
	if failed > elevatedFailuresAbove {
		anomalies = append(anomalies, fmt.Sprintf("elevated failed logins: %d", failed))
	}
	if distinctIPs > manyLocationsAbove {
		anomalies = append(anomalies, fmt.Sprintf("unusual location activity: %d distinct IPs", distinctIPs))
	}
	if failRatio > highFailureRatioAbove {
		anomalies = append(anomalies, "high failure rate")
	}
	return clamp(score, 0, 1), anomalies
}
