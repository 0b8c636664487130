package source

import (
	"context"
	"fmt"

	"github.com/okian/gincana/internal/domain/model"
	"github.com/okian/gincana/pkg/logger"
)

// Fallback serves Secondary whenever Primary fails to load.
type Fallback struct {
	Primary   Source
	Secondary Source
	Logger    logger.Logger
}

// NewFallback wraps primary with a secondary source.
func NewFallback(primary, secondary Source, log logger.Logger) *Fallback {
	return &Fallback{Primary: primary, Secondary: secondary, Logger: log}
}

// Name reports both sources.
func (f *Fallback) Name() string {
	return fmt.Sprintf("%s|%s", f.Primary.Name(), f.Secondary.Name())
}

// Load tries Primary and falls back to Secondary. The primary error is
// returned only when the secondary fails as well.
func (f *Fallback) Load(ctx context.Context) (model.RawDataset, error) {
	raw, err := f.Primary.Load(ctx)
	if err == nil {
		return raw, nil
	}
	if f.Logger != nil {
		f.Logger.Warn(ctx, "primary source failed, serving fallback",
			logger.String("primary", f.Primary.Name()),
			logger.String("fallback", f.Secondary.Name()),
			logger.Error(err),
		)
	}
	raw, ferr := f.Secondary.Load(ctx)
	if ferr != nil {
		return model.RawDataset{}, fmt.Errorf("%w (fallback: %w)", err, ferr)
	}
	return raw, nil
}
