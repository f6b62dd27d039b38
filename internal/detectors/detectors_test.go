package detectors

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/dfrtlabs/loglens/internal/models"
)

func entry(line int, ts, user, ip string, sev models.Severity, msg string) models.LogEntry {
	return models.LogEntry{
		LineNumber: line,
		Timestamp:  ts,
		User:       user,
		IPAddress:  ip,
		Severity:   sev,
		Message:    msg,
		RawContent: msg,
	}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func failedLogins(n int, ip string) []models.LogEntry {
	out := make([]models.LogEntry, 0, n)
	for i := 0; i < n; i++ {
		ts := fmt.Sprintf("2024-01-01 10:00:%02d", i)
		out = append(out, entry(i+1, ts, "root", ip, models.SeverityError, "failed login for user root from "+ip))
	}
	return out
}

func TestThreatDetectorFailedLoginRule(t *testing.T) {
	d := NewThreatDetector(RulesFrom(models.DefaultAnalysisOptions()))

	threats := d.Detect(failedLogins(6, "10.0.0.5"))
	if len(threats) != 1 {
		t.Fatalf("expected one threat, got %d", len(threats))
	}
	th := threats[0]
	if th.Type != models.ThreatBruteForce || th.Severity != models.SeverityCritical {
		t.Fatalf("unexpected threat %+v", th)
	}
	if !approx(th.ConfidenceScore, 0.8) {
		t.Fatalf("expected confidence 0.8, got %v", th.ConfidenceScore)
	}
	if th.Source != "10.0.0.5" || th.Target != "root" || th.RelatedEntries != 6 {
		t.Fatalf("unexpected source/target/related: %+v", th)
	}
	if th.Timestamp != "2024-01-01 10:00:00" {
		t.Fatalf("expected first match timestamp, got %q", th.Timestamp)
	}
	if th.Recommendation != "Block source IP 10.0.0.5 and reset affected account" {
		t.Fatalf("unexpected recommendation %q", th.Recommendation)
	}

	if got := d.Detect(failedLogins(5, "10.0.0.5")); len(got) != 0 {
		t.Fatalf("five matches must not fire, got %d", len(got))
	}
}

func TestThreatDetectorConfidenceCap(t *testing.T) {
	threats := NewThreatDetector(ThreatRules{FailedLogins: true}).Detect(failedLogins(40, "10.0.0.9"))
	if len(threats) != 1 || !approx(threats[0].ConfidenceScore, 0.95) {
		t.Fatalf("expected capped confidence 0.95, got %+v", threats)
	}
}

func TestThreatDetectorUnknownSource(t *testing.T) {
	entries := make([]models.LogEntry, 0)
	for i := 0; i < 6; i++ {
		entries = append(entries, entry(i+1, "", "", "", models.SeverityError, "Authentication FAILURE"))
	}
	threats := NewThreatDetector(ThreatRules{FailedLogins: true}).Detect(entries)
	if len(threats) != 1 {
		t.Fatalf("expected one threat, got %d", len(threats))
	}
	if threats[0].Source != "unknown" || threats[0].Target != "unknown" || threats[0].Timestamp != "" {
		t.Fatalf("expected unknown placeholders, got %+v", threats[0])
	}
}

func TestThreatDetectorTampering(t *testing.T) {
	e := entry(1, "2024-02-02T01:02:03", "", "", models.SeverityNormal, "Security event id: 1102")
	e.EventID = 1102
	entries := []models.LogEntry{
		entry(2, "2024-02-02T01:02:04", "", "", models.SeverityNormal, "heartbeat"),
		e,
		entry(3, "2024-02-02T01:02:05", "", "", models.SeverityNormal, "audit records PURGED by admin"),
	}
	threats := NewThreatDetector(RulesFrom(models.DefaultAnalysisOptions())).Detect(entries)
	if len(threats) != 1 {
		t.Fatalf("expected one tampering threat, got %d", len(threats))
	}
	th := threats[0]
	if th.Type != models.ThreatLogTampering || !approx(th.ConfidenceScore, 0.9) {
		t.Fatalf("unexpected threat %+v", th)
	}
	if th.RelatedEntries != 2 || th.Timestamp != "2024-02-02T01:02:03" || th.Source != "System" || th.Target != "Logs" {
		t.Fatalf("unexpected tampering details %+v", th)
	}
}

func TestThreatDetectorRulesDisabled(t *testing.T) {
	opts := models.DefaultAnalysisOptions()
	opts.EnableLoginAnalysis = false
	opts.EnableLogTamperingDetection = false
	entries := append(failedLogins(8, "10.0.0.1"), entry(9, "", "", "", models.SeverityNormal, "log cleared"))
	if got := NewThreatDetector(RulesFrom(opts)).Detect(entries); len(got) != 0 {
		t.Fatalf("expected no threats with rules disabled, got %+v", got)
	}
	if got := NewThreatDetector(RulesFrom(opts)).Detect(nil); got == nil {
		t.Fatalf("expected non-nil empty slice")
	}
}

func TestBruteForceCorrelator(t *testing.T) {
	entries := failedLogins(6, "10.0.0.5")
	entries = append(entries,
		entry(7, "2024-01-01 09:00:00", "bob", "10.0.0.7", models.SeverityError, "access denied"),
		entry(8, "2024-01-01 09:00:01", "", "", models.SeverityError, "failed login without ip"),
	)
	entries[3].Message = "failed login, account locked"
	entries[4].User = "Admin"

	attacks := NewBruteForceCorrelator(models.DefaultAnalysisOptions()).Correlate(entries)
	if len(attacks) != 1 {
		t.Fatalf("expected one attack, got %d", len(attacks))
	}
	a := attacks[0]
	if a.SourceIP != "10.0.0.5" || a.AttemptCount != 6 || !a.AccountLocked {
		t.Fatalf("unexpected attack %+v", a)
	}
	if !approx(a.ConfidenceScore, 0.8) {
		t.Fatalf("expected confidence 0.8, got %v", a.ConfidenceScore)
	}
	if a.StartTime != "2024-01-01 10:00:00" || a.EndTime != "2024-01-01 10:00:05" {
		t.Fatalf("unexpected window %s..%s", a.StartTime, a.EndTime)
	}
	if a.TargetUser != "root" || strings.Join(a.TargetUsers, ",") != "root,Admin" {
		t.Fatalf("unexpected targets %q %v", a.TargetUser, a.TargetUsers)
	}
	if a.WindowSeconds != models.DefaultBruteForceWindowSeconds {
		t.Fatalf("expected recorded window, got %d", a.WindowSeconds)
	}
}

func TestBruteForceCorrelatorThresholdAndOrder(t *testing.T) {
	opts := models.DefaultAnalysisOptions()
	opts.BruteForceThreshold = 1
	opts.EnableCrossCorrelation = false
	entries := []models.LogEntry{
		entry(1, "", "", "10.0.0.2", models.SeverityError, "connection denied"),
		entry(2, "", "", "10.0.0.1", models.SeverityError, "password failed"),
		entry(3, "", "", "10.0.0.2", models.SeverityError, "connection denied"),
	}
	attacks := NewBruteForceCorrelator(opts).Correlate(entries)
	if len(attacks) != 2 || attacks[0].SourceIP != "10.0.0.2" || attacks[1].SourceIP != "10.0.0.1" {
		t.Fatalf("expected first-encounter order, got %+v", attacks)
	}
	if attacks[1].TargetUser != "unknown" || len(attacks[1].TargetUsers) != 0 {
		t.Fatalf("expected unknown target and no target list, got %+v", attacks[1])
	}
	if !approx(attacks[1].ConfidenceScore, 0.55) {
		t.Fatalf("expected confidence 0.55, got %v", attacks[1].ConfidenceScore)
	}

	many := failedLogins(200, "10.1.1.1")
	if got := NewBruteForceCorrelator(opts).Correlate(many); !approx(got[0].ConfidenceScore, 0.99) {
		t.Fatalf("expected confidence clamp at 0.99, got %v", got[0].ConfidenceScore)
	}
}

func TestProfileBuilderAdminScenario(t *testing.T) {
	ips := []string{"10.0.0.1", "10.0.0.2", "10.0.0.3", "10.0.0.4"}
	entries := make([]models.LogEntry, 0)
	for i := 0; i < 11; i++ {
		user := "admin"
		if i == 3 {
			user = "ADMIN"
		}
		ts := fmt.Sprintf("2024-03-01 12:00:%02d", 20+i)
		entries = append(entries, entry(i+1, ts, user, ips[i%len(ips)], models.SeverityError, "login failed for "+user))
	}
	entries = append(entries,
		entry(12, "2024-03-01 11:59:59", "admin", "10.0.0.1", models.SeverityNormal, "user admin logged in"),
		entry(13, "2024-03-01T12:30:00", "admin", "", models.SeverityNormal, "authentication success"),
		entry(14, "2024-03-01 12:31:00", "guest", "10.9.9.9", models.SeverityNormal, "viewed page"),
	)

	profiles := NewProfileBuilder().Build(entries)
	if len(profiles) != 2 {
		t.Fatalf("expected two profiles, got %d", len(profiles))
	}
	p := profiles[0]
	if p.Username != "admin" || p.TotalActivities != 13 || p.FailedLogins != 11 || p.SuccessfulLogins != 2 {
		t.Fatalf("unexpected admin profile %+v", p)
	}
	if strings.Join(p.SourceIPs, ",") != strings.Join(ips, ",") {
		t.Fatalf("expected IPs in insertion order, got %v", p.SourceIPs)
	}
	want := math.Min(1, (11.0/13.0)*0.5+0.3+0.2)
	if !approx(p.RiskScore, want) {
		t.Fatalf("expected risk %v, got %v", want, p.RiskScore)
	}
	joined := strings.Join(p.Anomalies, "|")
	for _, phrase := range []string{"elevated failed logins", "unusual location activity", "high failure rate"} {
		if !strings.Contains(joined, phrase) {
			t.Fatalf("expected anomaly %q in %v", phrase, p.Anomalies)
		}
	}
	if p.FirstSeen != "2024-03-01 11:59:59" || p.LastSeen != "2024-03-01T12:30:00" {
		t.Fatalf("unexpected first/last seen %q %q", p.FirstSeen, p.LastSeen)
	}

	g := profiles[1]
	if g.Username != "guest" || g.RiskScore != 0 || len(g.Anomalies) != 0 || g.FailedLogins != 0 {
		t.Fatalf("unexpected guest profile %+v", g)
	}
}

func TestProfileBuilderSkipsAnonymous(t *testing.T) {
	profiles := NewProfileBuilder().Build([]models.LogEntry{
		entry(1, "", "", "1.2.3.4", models.SeverityNormal, "anonymous"),
		entry(2, "", "  ", "1.2.3.4", models.SeverityNormal, "blank user"),
	})
	if len(profiles) != 0 || profiles == nil {
		t.Fatalf("expected empty non-nil profiles, got %#v", profiles)
	}
}

func TestTimelineBuilder(t *testing.T) {
	entries := []models.LogEntry{
		entry(1, "2024-01-01 10:00:05", "alice", "10.0.0.1", models.SeverityError, "failed logon for alice"),
		entry(2, "2024-01-01 10:00:00", "", "", models.SeverityInfo, "service started"),
		entry(3, "2024-01-01T10:00:01", "", "", models.SeverityWarning, "privilege use warning"),
		entry(4, "", "", "", models.SeverityError, "disk error"),
		entry(5, "2024-01-01 10:00:01", "bob", "", models.SeverityCritical, "critical: account bob locked"),
	}
	tl := NewTimelineBuilder("").Build(entries)
	if tl.EventCount != 4 || len(tl.Events) != 4 {
		t.Fatalf("expected 4 events, got %d", tl.EventCount)
	}
	gotLines := []int{tl.Events[0].LineNumber, tl.Events[1].LineNumber, tl.Events[2].LineNumber, tl.Events[3].LineNumber}
	wantLines := []int{4, 3, 5, 1}
	for i := range wantLines {
		if gotLines[i] != wantLines[i] {
			t.Fatalf("unexpected order %v, want %v", gotLines, wantLines)
		}
	}
	if tl.Events[0].Actor != "Unknown" || tl.Events[0].IPAddress != "N/A" || tl.Events[0].Title != "Error/Failure Event" {
		t.Fatalf("unexpected first event %+v", tl.Events[0])
	}
	if tl.Events[1].Title != "Privilege Escalation Event" || tl.Events[2].Title != "Account Lockout Event" || tl.Events[3].Title != "Failed Login Attempt" {
		t.Fatalf("unexpected titles %+v", tl.Events)
	}
	if tl.Severity != models.SeverityCritical || tl.Title != DefaultTimelineTitle {
		t.Fatalf("unexpected timeline header %+v", tl)
	}
	if tl.Summary != "Timeline contains 4 significant events" || len(tl.MitigationSteps) != 5 {
		t.Fatalf("unexpected summary %q", tl.Summary)
	}
	if tl.StartTime != "" || tl.EndTime != "2024-01-01 10:00:05" {
		t.Fatalf("unexpected bounds %q %q", tl.StartTime, tl.EndTime)
	}
}

func TestTimelineOrdersTabSeparatedTimestamps(t *testing.T) {
	entries := []models.LogEntry{
		entry(1, "2024-01-01\t10:00:00", "", "", models.SeverityError, "disk error"),
		entry(2, "2024-01-01T09:00:00", "", "", models.SeverityError, "disk error"),
	}
	tl := NewTimelineBuilder("").Build(entries)
	if len(tl.Events) != 2 || tl.Events[0].LineNumber != 2 || tl.Events[1].LineNumber != 1 {
		t.Fatalf("expected 09:00 before 10:00, got %+v", tl.Events)
	}
}

func TestTimelineBuilderEmpty(t *testing.T) {
	tl := NewTimelineBuilder("").Build(nil)
	if tl.Summary != EmptyTimelineSummary || tl.Severity != models.SeverityInfo {
		t.Fatalf("unexpected empty timeline %+v", tl)
	}
	if tl.Events == nil || len(tl.Events) != 0 {
		t.Fatalf("expected empty non-nil events")
	}

	routine := NewTimelineBuilder("custom").Build([]models.LogEntry{entry(1, "", "", "", models.SeverityNormal, "ok")})
	if routine.EventCount != 0 || routine.Severity != models.SeverityInfo || routine.Title != "custom" {
		t.Fatalf("unexpected routine-only timeline %+v", routine)
	}
}

func TestTimelineDescriptionTruncated(t *testing.T) {
	msg := strings.Repeat("é", 300) + " error"
	tl := NewTimelineBuilder("").Build([]models.LogEntry{entry(1, "", "", "", models.SeverityError, msg)})
	if n := len([]rune(tl.Events[0].Description)); n != 250 {
		t.Fatalf("expected 250 runes, got %d", n)
	}
}

func TestEventTitlePriority(t *testing.T) {
	cases := map[string]string{
		"Failed login from x":          "Failed Login Attempt",
		"login success":                "Successful Login",
		"elevated token":               "Privilege Escalation Event",
		"account temporarily locked":   "Account Lockout Event",
		"permission denied":            "Access Control Event",
		"process fail":                 "Error/Failure Event",
		"reboot":                       "System Event",
		"failed login with permission": "Failed Login Attempt",
	}
	for msg, want := range cases {
		if got := EventTitle(msg); got != want {
			t.Errorf("EventTitle(%q) = %q, want %q", msg, got, want)
		}
	}
}

func TestFilterEntries(t *testing.T) {
	entries := []models.LogEntry{
		entry(1, "", "Alice", "10.0.0.1", models.SeverityError, "Failed login"),
		entry(2, "", "bob", "10.0.0.2", models.SeverityWarning, "disk warn"),
		entry(3, "", "alice", "10.0.0.1", models.SeverityError, "failed again"),
	}
	got := FilterEntries(entries, EntryFilter{Keyword: " FAILED ", User: "ALICE", Severity: "error"}, 0)
	if len(got) != 2 || got[0].LineNumber != 1 || got[1].LineNumber != 3 {
		t.Fatalf("unexpected filter result %+v", got)
	}
	if got := FilterEntries(entries, EntryFilter{IP: "10.0.0.2"}, 0); len(got) != 1 || got[0].User != "bob" {
		t.Fatalf("unexpected ip filter result %+v", got)
	}
	if got := FilterEntries(entries, EntryFilter{}, 2); len(got) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(got))
	}
	if got := FilterEntries(nil, EntryFilter{Keyword: "x"}, 5); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice")
	}
}
