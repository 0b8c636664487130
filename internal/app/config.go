package service

import (
	"github.com/okian/gincana/internal/adapters/source"
	"github.com/okian/gincana/internal/config"
	"github.com/okian/gincana/internal/domain/formula"
	"github.com/okian/gincana/pkg/logger"
)

// FromConfig builds a Service from process configuration. Extra options are
// applied after the configured ones.
func FromConfig(cfg *config.Config, opts ...Option) *Service {
	log := logger.Get()
	src, watchPath := SourceFor(cfg, log)

	base := []Option{
		WithLogger(log),
		WithSource(src),
		WithCacheTTL(cfg.CacheTTL()),
		WithRefreshInterval(cfg.RefreshInterval()),
		WithCoercer(CoercerFor(cfg)),
	}
	if cfg.WatchSource && watchPath != "" {
		base = append(base, WithWatchPath(watchPath))
	}
	return New(append(base, opts...)...)
}

// SourceFor picks the workbook source described by cfg. watchPath is the
// local file behind it, or "" for URLs and demo data.
func SourceFor(cfg *config.Config, log logger.Logger) (src source.Source, watchPath string) {
	if cfg.Source == "" {
		return source.NewDemo(), ""
	}
	wb := source.NewWorkbook(cfg.Source,
		source.WithSheets(source.Sheets{
			Participants: cfg.SheetParticipants,
			Categories:   cfg.SheetCategories,
			Donations:    cfg.SheetDonations,
		}),
		source.WithFetchTimeout(cfg.FetchTimeout()),
	)
	if !wb.IsRemote() {
		watchPath = wb.Location()
	}
	if cfg.DemoFallback {
		return source.NewFallback(wb, source.NewDemo(), log), watchPath
	}
	return wb, watchPath
}

// CoercerFor builds the formula coercer described by cfg.
func CoercerFor(cfg *config.Config) *formula.Coercer {
	opts := []formula.Option{formula.WithColumnLetters(cfg.QuantityColumnLetter, cfg.UnitPointsColumnLetter)}
	if cfg.LooseFormulaDetection {
		opts = append(opts, formula.WithLooseDetection())
	}
	return formula.New(opts...)
}
