package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dfrtlabs/loglens/internal/api"
	"github.com/dfrtlabs/loglens/internal/cache"
	"github.com/dfrtlabs/loglens/internal/detectors"
	"github.com/dfrtlabs/loglens/internal/engine"
	"github.com/dfrtlabs/loglens/internal/export"
	"github.com/dfrtlabs/loglens/internal/metrics"
	"github.com/dfrtlabs/loglens/internal/models"
	"github.com/dfrtlabs/loglens/internal/utils"
)

const resultKeyPrefix = "loglens:analysis:"

var (
	// ErrAnalysisNotFound is returned for unknown or expired analysis IDs.
	ErrAnalysisNotFound = errors.New("analysis not found")
	// ErrPathNotAllowed is wrapped when a path lies outside the configured roots.
	ErrPathNotAllowed = errors.New("path outside allowed roots")
)

// Settings tune result retention and path restrictions.
type Settings struct {
	ResultTTL    time.Duration
	AllowedRoots []string
}

// AnalysisService implements the Analyzer gRPC service on top of the pipeline
// and keeps completed results in a cache provider.
type AnalysisService struct {
	logger       *slog.Logger
	pipeline     *engine.Pipeline
	store        cache.Provider
	resultTTL    time.Duration
	allowedRoots []string
	latencies    *utils.LatencyTracker
	now          func() time.Time
}

// NewAnalysisService constructs the service facade. A nil store keeps nothing.
func NewAnalysisService(logger *slog.Logger, pipeline *engine.Pipeline, store cache.Provider, settings Settings) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	if store == nil {
		store = cache.NoopProvider{}
	}
	roots := make([]string, 0, len(settings.AllowedRoots))
	for _, r := range settings.AllowedRoots {
		if strings.TrimSpace(r) == "" {
			continue
		}
		roots = append(roots, resolvePath(r))
	}
	return &AnalysisService{
		logger:       logger,
		pipeline:     pipeline,
		store:        store,
		resultTTL:    settings.ResultTTL,
		allowedRoots: roots,
		latencies:    utils.NewLatencyTracker(1024),
		now:          time.Now,
	}
}

// Analyze runs the pipeline over paths and stores the result under its analysis ID.
func (s *AnalysisService) Analyze(ctx context.Context, paths []string, opts models.AnalysisOptions) (*models.AnalysisResult, error) {
	if s.pipeline == nil {
		return nil, utils.NewAppError("run analysis", "pipeline not configured", nil)
	}
	if err := s.checkRoots(paths); err != nil {
		return nil, err
	}

	start := s.now()
	result, err := s.pipeline.RunAnalysis(ctx, paths, opts)
	duration := s.now().Sub(start)
	outcome := metrics.ObserveAnalysis(duration, result)
	if err != nil {
		s.logger.Warn("analysis failed", slog.Int("paths", len(paths)), slog.String("outcome", outcome), slog.Any("error", err))
		return nil, err
	}

	s.latencies.Observe(duration)
	if runs := s.latencies.Observed(); runs%20 == 0 {
		s.logger.Info("analysis latency", slog.Duration("p95", s.latencies.Percentile(95)), slog.Int("runs", runs))
	}

	if err := s.save(ctx, result); err != nil {
		s.logger.Warn("failed to store analysis result", slog.String("analysis_id", result.AnalysisID), slog.Any("error", err))
	}
	return result, nil
}

// Result loads a stored analysis.
func (s *AnalysisService) Result(ctx context.Context, analysisID string) (*models.AnalysisResult, error) {
	data, err := s.store.Get(ctx, resultKeyPrefix+analysisID)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, fmt.Errorf("%s: %w", analysisID, ErrAnalysisNotFound)
	}
	if err != nil {
		return nil, utils.NewAppError("get analysis", "read result store", err)
	}
	var result models.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, utils.NewAppError("get analysis", "decode stored result", err)
	}
	return &result, nil
}

// Entries returns the stored analysis' entries matching filter, capped at limit.
// The second return value is the number of entries in the analysis.
func (s *AnalysisService) Entries(ctx context.Context, analysisID string, filter detectors.EntryFilter, limit int) ([]models.LogEntry, int, error) {
	result, err := s.Result(ctx, analysisID)
	if err != nil {
		return nil, 0, err
	}
	return detectors.FilterEntries(result.Entries, filter, limit), len(result.Entries), nil
}

// Export renders a stored analysis in the requested format.
func (s *AnalysisService) Export(ctx context.Context, analysisID string, format export.Format) ([]byte, error) {
	result, err := s.Result(ctx, analysisID)
	if err != nil {
		return nil, err
	}
	return export.Render(result, format, s.now())
}

// LatencyP95 returns the current p95 analysis latency.
func (s *AnalysisService) LatencyP95() time.Duration {
	return s.latencies.Percentile(95)
}

// LatencySummary reports run latencies over the tracker window.
func (s *AnalysisService) LatencySummary() utils.LatencySummary {
	return s.latencies.Summary()
}

// RunAnalysis implements api.AnalyzerServer.
func (s *AnalysisService) RunAnalysis(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := api.FromStructRunRequest(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	s.logger.Debug("RunAnalysis called", slog.Int("paths", len(req.Paths)))

	result, err := s.Analyze(ctx, req.Paths, req.Options)
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := api.ToStructResult(result)
	if err != nil {
		return nil, toStatus(err)
	}
	return out, nil
}

// GetAnalysis implements api.AnalyzerServer.
func (s *AnalysisService) GetAnalysis(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	ref, err := api.FromStructAnalysisRef(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	result, err := s.Result(ctx, ref.AnalysisID)
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := api.ToStructResult(result)
	if err != nil {
		return nil, toStatus(err)
	}
	return out, nil
}

// QueryEntries implements api.AnalyzerServer.
func (s *AnalysisService) QueryEntries(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := api.FromStructQueryRequest(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	entries, total, err := s.Entries(ctx, req.AnalysisID, req.Filter, req.Limit)
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := api.ToStruct(api.QueryResponse{AnalysisID: req.AnalysisID, Total: total, Entries: entries})
	if err != nil {
		return nil, toStatus(err)
	}
	return out, nil
}

// ExportAnalysis implements api.AnalyzerServer.
func (s *AnalysisService) ExportAnalysis(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := api.FromStructExportRequest(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	format, err := export.ParseFormat(req.Format)
	if err != nil {
		return nil, toStatus(err)
	}
	content, err := s.Export(ctx, req.AnalysisID, format)
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := api.ToStruct(api.ExportResponse{
		AnalysisID:  req.AnalysisID,
		Format:      string(format),
		ContentType: format.ContentType(),
		Content:     string(content),
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return out, nil
}

func (s *AnalysisService) save(ctx context.Context, result *models.AnalysisResult) error {
	data, err := export.JSON(result)
	if err != nil {
		return err
	}
	stored, err := s.store.SetNX(ctx, resultKeyPrefix+result.AnalysisID, data, s.resultTTL)
	if err != nil {
		return err
	}
	if !stored {
		return fmt.Errorf("analysis %s already stored", result.AnalysisID)
	}
	return nil
}

func (s *AnalysisService) checkRoots(paths []string) error {
	if len(s.allowedRoots) == 0 {
		return nil
	}
	for _, p := range paths {
		resolved := resolvePath(p)
		if !withinAny(resolved, s.allowedRoots) {
			return utils.NewKindError(utils.KindInvalidInput, "run analysis", p, ErrPathNotAllowed)
		}
	}
	return nil
}

// resolvePath returns an absolute, symlink-free form of p where possible.
func resolvePath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	if target, err := filepath.EvalSymlinks(abs); err == nil {
		return target
	}
	return abs
}

func withinAny(path string, roots []string) bool {
	for _, root := range roots {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			continue
		}
		if rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func toStatus(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrAnalysisNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	switch utils.KindOf(err) {
	case utils.KindInvalidInput, utils.KindNoAccessibleFiles:
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
