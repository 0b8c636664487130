// Package service runs the scoring pipeline for the HTTP API and the
// report CLI: cached source, normalization, filtering and the builders.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/gincana/internal/adapters/fswatch"
	"github.com/okian/gincana/internal/adapters/repository"
	"github.com/okian/gincana/internal/adapters/source"
	"github.com/okian/gincana/internal/domain/aggregate"
	"github.com/okian/gincana/internal/domain/filter"
	"github.com/okian/gincana/internal/domain/formula"
	"github.com/okian/gincana/internal/domain/goals"
	"github.com/okian/gincana/internal/domain/insights"
	"github.com/okian/gincana/internal/domain/leaderboard"
	"github.com/okian/gincana/internal/domain/model"
	"github.com/okian/gincana/internal/domain/normalize"
	"github.com/okian/gincana/internal/domain/types"
	"github.com/okian/gincana/pkg/logger"
	"github.com/okian/gincana/pkg/metrics"
)

const tracerName = "github.com/okian/gincana/internal/app"

// Pipeline run results as recorded in metrics.
const (
	ResultOK            = "ok"
	ResultInvalidSource = "invalid_source"
	ResultBadSelection  = "bad_selection"
	ResultSourceError   = "source_error"
)

// Service runs the pipeline against a cached source.
type Service struct {
	mu sync.RWMutex

	// Core components
	src        source.Source
	store      *repository.Cache
	normalizer *normalize.Normalizer
	watcher    *fswatch.Watcher

	// Configuration
	cacheTTL        time.Duration
	refreshInterval time.Duration
	coercer         *formula.Coercer
	watchPath       string

	// State
	started  bool
	runs     atomic.Uint64
	failures atomic.Uint64
	lastRun  atomic.Value // string
	reported atomic.Uint64

	tracer trace.Tracer
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSource sets the workbook source. Defaults to the demo drive.
func WithSource(src source.Source) Option {
	return func(s *Service) {
		if src != nil {
			s.src = src
		}
	}
}

// WithCacheTTL sets how long a loaded source is reused. 0 keeps it until
// invalidated.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl >= 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithRefreshInterval enables a background reload of the source.
func WithRefreshInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval > 0 {
			s.refreshInterval = interval
		}
	}
}

// WithCoercer sets the formula coercer used by normalization.
func WithCoercer(c *formula.Coercer) Option {
	return func(s *Service) {
		if c != nil {
			s.coercer = c
		}
	}
}

// WithWatchPath invalidates the cache whenever the file at path changes.
func WithWatchPath(path string) Option {
	return func(s *Service) {
		s.watchPath = path
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTracer sets the tracer for pipeline spans. Defaults to the global
// provider.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// New constructs a Service. The source cache is usable before Start;
// Start adds the background refresh and the file watcher.
func New(opts ...Option) *Service {
	s := &Service{
		src:      source.NewDemo(),
		cacheTTL: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	if s.coercer == nil {
		s.coercer = formula.New()
	}
	s.lastRun.Store("")

	s.normalizer = normalize.New(normalize.WithCoercer(s.coercer))
	s.store = repository.NewCache(s.src,
		repository.WithTTL(s.cacheTTL),
		repository.WithRefreshInterval(s.refreshInterval),
		repository.WithLogger(s.logger),
	)
	return s
}

// Start launches background refresh and, when configured, the file watcher.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting scoring service...", logger.String("source", s.src.Name()))

	if s.watchPath != "" {
		w, err := fswatch.New(s.watchPath, func(context.Context) {
			s.store.Invalidate("file_change")
		}, fswatch.WithLogger(s.logger))
		if err != nil {
			return fmt.Errorf("watch source: %w", err)
		}
		if err := w.Start(ctx); err != nil {
			w.Stop()
			return fmt.Errorf("watch source: %w", err)
		}
		s.watcher = w
	}
	s.store.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "scoring service started",
		logger.Duration("cache_ttl", s.cacheTTL),
		logger.Duration("refresh_interval", s.refreshInterval),
		logger.Bool("watching", s.watcher != nil),
		logger.Bool("loose_formulas", s.coercer.Loose()),
	)
	return nil
}

// Stop shuts down the background goroutines. The cache is closed, so a
// stopped service cannot be started again.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping scoring service...")

	if s.watcher != nil {
		s.watcher.Stop()
		s.watcher = nil
	}
	_ = s.store.Close()

	s.started = false
	s.logger.Info(context.Background(), "scoring service stopped")
}

// pipeline is the state shared by the builders of one run.
type pipeline struct {
	meta types.Meta
	ds   model.Dataset
	view model.DonationTable
}

// run loads, normalizes and filters. Every call gets a fresh run ID.
func (s *Service) run(ctx context.Context, op string, sel filter.Selection) (*pipeline, error) {
	start := time.Now()
	sel = sel.Normalized()
	runID := uuid.NewString()

	ctx, span := s.tracer.Start(ctx, "pipeline."+op, trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.String("group", sel.Group),
		attribute.String("sprint", sel.Sprint),
	))
	defer span.End()

	p, err := s.execute(ctx, runID, sel)
	ms := float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.failures.Add(1)
		metrics.RecordPipelineRun(resultOf(err), ms)
		s.logger.Warn(ctx, "pipeline run failed",
			logger.String("run_id", runID),
			logger.String("op", op),
			logger.Error(err),
		)
		return nil, err
	}

	s.runs.Add(1)
	s.lastRun.Store(runID)
	metrics.RecordPipelineRun(ResultOK, ms)
	s.logger.Debug(ctx, "pipeline run",
		logger.String("run_id", runID),
		logger.String("op", op),
		logger.Int("rows", p.view.Len()),
		logger.Float64("duration_ms", ms),
	)
	return p, nil
}

func (s *Service) execute(ctx context.Context, runID string, sel filter.Selection) (*pipeline, error) {
	snap, err := s.store.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", source.ErrUnavailable, err)
	}

	ds, err := s.normalize(ctx, snap)
	if err != nil {
		return nil, err
	}
	if err := sel.Validate(ds); err != nil {
		return nil, err
	}

	_, span := s.tracer.Start(ctx, "filter")
	view := filter.Apply(ds.Donations, sel)
	span.SetAttributes(attribute.Int("rows", view.Len()))
	span.End()

	return &pipeline{
		meta: types.Meta{
			RunID:     runID,
			Version:   snap.Version,
			Source:    snap.Source,
			LoadedAt:  snap.LoadedAt,
			Selection: sel,
		},
		ds:   ds,
		view: view,
	}, nil
}

func (s *Service) normalize(ctx context.Context, snap repository.Snapshot) (model.Dataset, error) {
	ctx, span := s.tracer.Start(ctx, "normalize")
	defer span.End()

	ds, report, err := s.normalizer.Normalize(snap.Data)
	if err != nil {
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			metrics.RecordValidationFailure()
		}
		return model.Dataset{}, err
	}
	span.SetAttributes(
		attribute.Int("participants", len(ds.Participants)),
		attribute.Int("donations", ds.Donations.Len()),
	)
	metrics.RecordFormulaCells(report.Formula.Resolved, report.Formula.Defaulted)
	metrics.UpdateDatasetSize(len(ds.Participants), ds.Donations.Len(), len(ds.Groups))

	// Data-quality notes once per loaded snapshot.
	if s.reported.Swap(snap.Version) != snap.Version {
		s.logger.Info(ctx, "dataset normalized",
			logger.Int("version", int(snap.Version)),
			logger.String("report", report.String()),
		)
		if len(report.DuplicateNames) > 0 {
			s.logger.Warn(ctx, "duplicate participant names, first row kept",
				logger.Any("names", report.DuplicateNames))
		}
	}
	return ds, nil
}

func resultOf(err error) string {
	switch {
	case errors.Is(err, model.ErrInvalidSource):
		return ResultInvalidSource
	case errors.Is(err, filter.ErrUnknownGroup), errors.Is(err, filter.ErrUnknownSprint):
		return ResultBadSelection
	default:
		return ResultSourceError
	}
}

// Leaderboard ranks the whole roster against the selected view.
func (s *Service) Leaderboard(ctx context.Context, sel filter.Selection) (types.Leaderboard, error) {
	p, err := s.run(ctx, "leaderboard", sel)
	if err != nil {
		return types.Leaderboard{}, err
	}
	entries := leaderboard.Build(p.ds.Participants, p.view)
	return types.Leaderboard{
		Meta:    p.meta,
		Entries: entries,
		Podium:  leaderboard.Podium(entries),
		Summary: leaderboard.Summarize(entries),
	}, nil
}

// Goals reports category progress for the selected view.
func (s *Service) Goals(ctx context.Context, sel filter.Selection) (types.Goals, error) {
	p, err := s.run(ctx, "goals", sel)
	if err != nil {
		return types.Goals{}, err
	}
	return types.Goals{Meta: p.meta, Goals: goals.Progress(p.ds.Categories, p.view)}, nil
}

// Aggregate sums field by key over the selected view, largest first.
func (s *Service) Aggregate(ctx context.Context, sel filter.Selection, key aggregate.Key, field aggregate.Field) (types.Aggregate, error) {
	p, err := s.run(ctx, "aggregate", sel)
	if err != nil {
		return types.Aggregate{}, err
	}
	return types.Aggregate{
		Meta:    p.meta,
		By:      key.String(),
		Field:   field.String(),
		Buckets: aggregate.Ranked(aggregate.Sum(p.view, key, field)),
		Total:   aggregate.Total(p.view, field),
	}, nil
}

// Overview returns the headline metrics.
func (s *Service) Overview(ctx context.Context, sel filter.Selection) (types.Overview, error) {
	p, err := s.run(ctx, "overview", sel)
	if err != nil {
		return types.Overview{}, err
	}
	return types.Overview{Meta: p.meta, Overview: insights.Overview(p.view)}, nil
}

// Sprints compares sprints. The category breakdown follows the selected sprint.
func (s *Service) Sprints(ctx context.Context, sel filter.Selection) (types.Sprints, error) {
	p, err := s.run(ctx, "sprints", sel)
	if err != nil {
		return types.Sprints{}, err
	}
	selected := ""
	if p.meta.Selection.Sprint != filter.All {
		selected = p.meta.Selection.Sprint
	}
	return types.Sprints{Meta: p.meta, Sprints: insights.Sprints(p.view, selected)}, nil
}

// Group drills into one group within the selected view.
func (s *Service) Group(ctx context.Context, sel filter.Selection, name string) (types.Group, error) {
	p, err := s.run(ctx, "group", sel)
	if err != nil {
		return types.Group{}, err
	}
	d, err := insights.Group(p.ds, p.view, name)
	if err != nil {
		return types.Group{}, err
	}
	return types.Group{Meta: p.meta, Group: d}, nil
}

// Participant drills into one participant within the selected view.
func (s *Service) Participant(ctx context.Context, sel filter.Selection, name string) (types.Participant, error) {
	p, err := s.run(ctx, "participant", sel)
	if err != nil {
		return types.Participant{}, err
	}
	d, err := insights.Participant(p.ds, p.view, name)
	if err != nil {
		return types.Participant{}, err
	}
	return types.Participant{Meta: p.meta, Participant: d}, nil
}

// Filters lists the selectable groups and sprints.
func (s *Service) Filters(ctx context.Context) (types.Filters, error) {
	p, err := s.run(ctx, "filters", filter.Everything())
	if err != nil {
		return types.Filters{}, err
	}
	return types.NewFilters(p.ds), nil
}

// Reload forces a fresh load of the source and checks that it normalizes.
func (s *Service) Reload(ctx context.Context) (types.Reload, error) {
	snap, err := s.store.Reload(ctx)
	if err != nil {
		return types.Reload{}, fmt.Errorf("%w: %w", source.ErrUnavailable, err)
	}
	ds, err := s.normalize(ctx, snap)
	if err != nil {
		return types.Reload{}, err
	}
	return types.Reload{
		Version:      snap.Version,
		Source:       snap.Source,
		LoadedAt:     snap.LoadedAt,
		Participants: len(ds.Participants),
		Donations:    ds.Donations.Len(),
	}, nil
}

// Invalidate drops the cached source.
func (s *Service) Invalidate(reason string) {
	s.store.Invalidate(reason)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":         s.started,
		"source":          s.src.Name(),
		"cacheTTLSeconds": s.cacheTTL.Seconds(),
		"runs":            s.runs.Load(),
		"failures":        s.failures.Load(),
		"lastRunID":       s.lastRun.Load(),
		"looseFormulas":   s.coercer.Loose(),
	}
	if snap, err := s.store.Current(); err == nil {
		stats["version"] = snap.Version
		stats["loadedAt"] = snap.LoadedAt
		stats["cacheAgeSeconds"] = s.store.Age().Seconds()
	}
	if s.watcher != nil {
		ws := s.watcher.Stats()
		stats["watchEvents"] = ws.Events
		stats["watchTriggers"] = ws.Triggers
	}
	return stats
}
