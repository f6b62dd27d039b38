package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dfrtlabs/loglens/internal/detectors"
	"github.com/dfrtlabs/loglens/internal/ingest"
	"github.com/dfrtlabs/loglens/internal/models"
	"github.com/dfrtlabs/loglens/internal/parser"
	"github.com/dfrtlabs/loglens/internal/utils"
)

// Pipeline orchestrates one analysis run: ingest, detect, correlate, profile, summarize.
// It holds no per-run state and is safe for concurrent use.
type Pipeline struct {
	logger       *slog.Logger
	rulesEngine  *RuleEngine
	maxLineBytes int
	now          func() time.Time
}

// NewPipeline constructs a new analysis pipeline. rulesEngine may be nil.
func NewPipeline(logger *slog.Logger, rulesEngine *RuleEngine, maxLineBytes int) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		logger:       logger,
		rulesEngine:  rulesEngine,
		maxLineBytes: maxLineBytes,
		now:          time.Now,
	}
}

// RunAnalysis processes paths sequentially and assembles the run's result.
// Empty or wholly inaccessible path lists fail before any file is read; individual
// file failures are recorded in the result. Cancellation aborts the run.
func (p *Pipeline) RunAnalysis(ctx context.Context, paths []string, opts models.AnalysisOptions) (*models.AnalysisResult, error) {
	if _, err := ingest.ValidatePaths(paths); err != nil {
		return nil, err
	}
	opts = opts.Normalize()

	started := p.now()
	analysisID := newAnalysisID(started)
	logger := p.logger.With(slog.String("analysis_id", analysisID))
	ingestor := ingest.NewIngestor(logger, parser.New(parser.OptionsFrom(opts)), p.maxLineBytes)

	result := &models.AnalysisResult{
		AnalysisID:         analysisID,
		StartTime:          utils.FormatISO(started),
		TotalFilesAnalyzed: len(paths),
		FailedFiles:        []models.FileFailure{},
		Entries:            []models.LogEntry{},
	}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("analysis %s cancelled: %w", analysisID, err)
		}
		fileResult, err := ingestor.IngestFile(ctx, path)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("analysis %s cancelled: %w", analysisID, err)
			}
			logger.Warn("file could not be processed",
				slog.String("path", path),
				slog.String("kind", string(utils.KindOf(err))),
				slog.Any("error", err))
			result.FailedFiles = append(result.FailedFiles, models.FileFailure{Path: path, Error: err.Error()})
			continue
		}
		result.SuccessfulFiles++
		result.SkippedLines += fileResult.Skipped
		result.Entries = append(result.Entries, fileResult.Entries...)
		logger.Debug("file processed",
			slog.String("path", path),
			slog.Int("entries", len(fileResult.Entries)),
			slog.Int("skipped", fileResult.Skipped),
			slog.Int("malformed", fileResult.Malformed))
	}

	p.summarize(result, opts)

	finished := p.now()
	result.EndTime = utils.FormatISO(finished)
	result.ProcessingTimeMs = finished.Sub(started).Milliseconds()

	logger.Info("analysis completed",
		slog.Int("files", result.TotalFilesAnalyzed),
		slog.Int("failed_files", len(result.FailedFiles)),
		slog.Int("entries", result.TotalEntriesParsed),
		slog.Int("threats", result.DetectionSummary.TotalThreats),
		slog.Float64("risk_score", result.DetectionSummary.OverallRiskScore))
	return result, nil
}

// summarize fills every derived field of result from its entries.
func (p *Pipeline) summarize(result *models.AnalysisResult, opts models.AnalysisOptions) {
	entries := result.Entries

	result.Success = result.SuccessfulFiles > 0
	if n := len(result.FailedFiles); n > 0 {
		result.ErrorMessage = fmt.Sprintf("%d file(s) could not be processed", n)
	}
	result.TotalEntriesParsed = len(entries)
	result.Statistics = severityStatistics(entries)

	result.Threats = []models.Threat{}
	result.BruteForceAttacks = []models.BruteForceAttack{}
	result.UserProfiles = []models.UserProfile{}
	if len(entries) > 0 {
		result.Threats = detectors.NewThreatDetector(detectors.RulesFrom(opts)).Detect(entries)
		if opts.EnableBruteForceDetection {
			result.BruteForceAttacks = detectors.NewBruteForceCorrelator(opts).Correlate(entries)
		}
		if opts.EnableUserProfiling {
			result.UserProfiles = detectors.NewProfileBuilder().Build(entries)
		}
	}
	if opts.EnableTimelineReconstruction {
		tl := detectors.NewTimelineBuilder("").Build(entries)
		result.Timeline = &tl
	}

	result.DetectionSummary = models.DetectionSummary{
		TotalThreats:     len(result.Threats),
		OverallRiskScore: RiskScore(result.Threats),
	}
	for _, t := range result.Threats {
		switch t.Severity {
		case models.SeverityCritical:
			result.DetectionSummary.CriticalThreats++
		case models.SeverityWarning:
			result.DetectionSummary.WarningThreats++
		}
	}

	result.Recommendations = GenerateRecommendations(result.Threats, result.BruteForceAttacks)
	if p.rulesEngine != nil {
		result.Recommendations = appendUnique(result.Recommendations,
			p.rulesEngine.Recommend(result.Threats, result.DetectionSummary.OverallRiskScore)...)
	}
}

func severityStatistics(entries []models.LogEntry) models.Statistics {
	stats := models.Statistics{TotalEntries: len(entries)}
	for _, e := range entries {
		switch e.Severity {
		case models.SeverityCritical, models.SeverityError, models.SeverityAlert:
			stats.CriticalEvents++
		case models.SeverityWarning:
			stats.WarningEvents++
		default:
			stats.NormalEvents++
		}
	}
	return stats
}

func newAnalysisID(at time.Time) string {
	return fmt.Sprintf("LL-%s-%d", uuid.NewString()[:8], at.UnixMilli())
}
