// Package source loads the raw drive workbook from a file, a URL or the
// built-in demo data.
package source

import (
	"context"
	"errors"

	"github.com/okian/gincana/internal/domain/model"
)

// Sentinel kinds for source errors.
var (
	ErrFetch             = errors.New("source fetch failed")
	ErrUnsupportedFormat = errors.New("unsupported workbook format")
	// ErrUnavailable marks any failure to obtain raw data for a run.
	ErrUnavailable = errors.New("source unavailable")
)

// Source supplies the three raw sheets of a drive.
type Source interface {
	// Load reads the sheets. A sheet missing from the source is a nil table.
	Load(ctx context.Context) (model.RawDataset, error)
	// Name identifies the source in logs and metrics.
	Name() string
}

// Sheets names the workbook tabs to read.
type Sheets struct {
	Participants string
	Categories   string
	Donations    string
}

// DefaultSheets are the tab names of the drive workbook.
func DefaultSheets() Sheets {
	return Sheets{
		Participants: model.TableParticipants,
		Categories:   model.TableCategories,
		Donations:    model.TableDonations,
	}
}

func (s Sheets) withDefaults() Sheets {
	d := DefaultSheets()
	if s.Participants == "" {
		s.Participants = d.Participants
	}
	if s.Categories == "" {
		s.Categories = d.Categories
	}
	if s.Donations == "" {
		s.Donations = d.Donations
	}
	return s
}
