// Package filter narrows the donation table by group and sprint.
package filter

import (
	"errors"
	"fmt"

	"github.com/okian/gincana/internal/domain/model"
)

// All is the selection sentinel meaning "no filtering on this dimension".
const All = "Todos"

// Sentinel errors for selection validation.
var (
	ErrUnknownGroup  = errors.New("unknown group")
	ErrUnknownSprint = errors.New("unknown sprint")
)

// Selection is the group and sprint chosen by a caller. Empty fields behave like All.
type Selection struct {
	Group  string `json:"group"`
	Sprint string `json:"sprint"`
}

// Everything selects the whole table.
func Everything() Selection { return Selection{Group: All, Sprint: All} }

// Normalized returns sel with empty fields replaced by All.
func (s Selection) Normalized() Selection {
	if s.Group == "" {
		s.Group = All
	}
	if s.Sprint == "" {
		s.Sprint = All
	}
	return s
}

// IsAll reports whether neither dimension filters anything.
func (s Selection) IsAll() bool {
	s = s.Normalized()
	return s.Group == All && s.Sprint == All
}

// Validate checks the selection against the available values of ds.
func (s Selection) Validate(ds model.Dataset) error {
	s = s.Normalized()
	if s.Group != All && !contains(ds.Groups, s.Group) {
		return fmt.Errorf("%w: %q", ErrUnknownGroup, s.Group)
	}
	if s.Sprint != All && !contains(ds.Sprints, s.Sprint) {
		return fmt.Errorf("%w: %q", ErrUnknownSprint, s.Sprint)
	}
	return nil
}

// Apply returns a fresh table holding the records that match sel. The input
// is never mutated. Without a SPRINT column the sprint filter is a no-op.
func Apply(table model.DonationTable, sel Selection) model.DonationTable {
	sel = sel.Normalized()
	byGroup := sel.Group != All
	bySprint := sel.Sprint != All && table.Columns.Has(model.ColSprint)

	out := model.DonationTable{
		Records: make([]model.DonationRecord, 0, len(table.Records)),
		Columns: make(model.ColumnSet, len(table.Columns)),
	}
	for c := range table.Columns {
		out.Columns[c] = true
	}
	for _, r := range table.Records {
		if byGroup && r.Group != sel.Group {
			continue
		}
		if bySprint && (r.Sprint == nil || *r.Sprint != sel.Sprint) {
			continue
		}
		out.Records = append(out.Records, r)
	}
	return out
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
