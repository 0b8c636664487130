// Package normalize turns raw workbook sheets into typed, clean tables.
//
// Key columns are coerced to strings unconditionally, numeric donation
// columns go through the formula coercer, and placeholder keys ("", "nan")
// are kept on rows but left out of the available filter values.
package normalize

import (
	"fmt"

	"github.com/okian/gincana/internal/domain/formula"
	"github.com/okian/gincana/internal/domain/model"
)

const entityWorkbook = "workbook"

// Required columns per sheet. Donations has none: its columns degrade.
var (
	participantColumns = []string{model.ColName, model.ColGroup}       //nolint:gochecknoglobals // read-only
	categoryColumns    = []string{model.ColCategory, model.ColGroupGoal} //nolint:gochecknoglobals // read-only
)

// Option applies a configuration option to the Normalizer.
type Option func(*Normalizer)

// WithCoercer sets the formula coercer used for donation numerics.
func WithCoercer(c *formula.Coercer) Option {
	return func(n *Normalizer) {
		if c != nil {
			n.coercer = c
		}
	}
}

// Report describes data-quality facts observed while normalizing.
type Report struct {
	Formula          formula.Stats
	DonationsMissing bool
	SkippedBlankRows int
	DuplicateNames   []string
}

// Normalizer cleans raw datasets. It is stateless and safe to reuse.
type Normalizer struct {
	coercer *formula.Coercer
}

// New creates a Normalizer with a default formula coercer.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{coercer: formula.New()}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize validates the structure of raw and returns clean tables. A
// missing participants or categories sheet, or a missing required column,
// yields a *model.ValidationError and no dataset.
func (n *Normalizer) Normalize(raw model.RawDataset) (model.Dataset, Report, error) {
	var rep Report
	if err := validate(raw); err != nil {
		return model.Dataset{}, rep, err
	}

	participants, skipped, dups := n.participants(raw.Participants)
	rep.SkippedBlankRows += skipped
	rep.DuplicateNames = dups

	categories, skipped := n.categories(raw.Categories)
	rep.SkippedBlankRows += skipped

	donations := model.DonationTable{Records: []model.DonationRecord{}, Columns: model.ColumnSet{}}
	if raw.Donations == nil {
		rep.DonationsMissing = true
	} else {
		donations, rep.Formula, skipped = n.donations(raw.Donations)
		rep.SkippedBlankRows += skipped
	}

	return model.Dataset{
		Participants: participants,
		Categories:   categories,
		Donations:    donations,
		Groups:       Groups(participants),
		Sprints:      Sprints(donations),
	}, rep, nil
}

func validate(raw model.RawDataset) error {
	verr := model.NewValidationError(entityWorkbook)
	check := func(name string, t *model.Table, required []string) {
		if t == nil {
			verr.AddErrorf("sheet %q is absent", name)
			return
		}
		for _, col := range required {
			if !t.Has(col) {
				verr.AddErrorf("sheet %q: missing column %q", name, col)
			}
		}
	}
	check(model.TableParticipants, raw.Participants, participantColumns)
	check(model.TableCategories, raw.Categories, categoryColumns)
	if verr.HasErrors() {
		return verr
	}
	return nil
}

func (n *Normalizer) participants(t *model.Table) ([]model.Participant, int, []string) {
	out := make([]model.Participant, 0, len(t.Rows))
	seen := make(map[string]bool, len(t.Rows))
	var dups []string
	skipped := 0
	for _, row := range t.Rows {
		if blank(row) {
			skipped++
			continue
		}
		p := model.Participant{
			Name:  KeyString(row[model.ColName]),
			Group: KeyString(row[model.ColGroup]),
		}
		if seen[p.Name] {
			dups = append(dups, p.Name)
			continue
		}
		seen[p.Name] = true
		out = append(out, p)
	}
	return out, skipped, dups
}

func (n *Normalizer) categories(t *model.Table) ([]model.CategoryRule, int) {
	out := make([]model.CategoryRule, 0, len(t.Rows))
	skipped := 0
	for _, row := range t.Rows {
		if blank(row) {
			skipped++
			continue
		}
		out = append(out, model.CategoryRule{
			Category:       KeyString(row[model.ColCategory]),
			ItemType:       KeyString(row[model.ColItemType]),
			UnitPoints:     formula.Number(row[model.ColUnitPoints]),
			GroupGoal:      formula.Number(row[model.ColGroupGoal]),
			BonusCondition: KeyString(row[model.ColBonusCondition]),
			BonusPoints:    formula.Number(row[model.ColBonusPoints]),
		})
	}
	return out, skipped
}

func (n *Normalizer) donations(t *model.Table) (model.DonationTable, formula.Stats, int) {
	var stats formula.Stats
	records := make([]model.DonationRecord, 0, len(t.Rows))
	hasSprint := t.Has(model.ColSprint)
	skipped := 0
	for _, raw := range t.Rows {
		if blank(raw) {
			skipped++
			continue
		}
		row, st := n.coercer.CoerceRow(raw)
		stats.Add(st)

		rec := model.DonationRecord{
			Date:            ParseDate(row[model.ColDate]),
			ParticipantName: KeyString(row[model.ColName]),
			Group:           KeyString(row[model.ColGroup]),
			Category:        KeyString(row[model.ColCategory]),
			ItemType:        KeyString(row[model.ColItemType]),
			Quantity:        formula.Number(row[model.ColQuantity]),
			UnitPoints:      formula.Number(row[model.ColUnitPoints]),
			PointsSubtotal:  formula.Number(row[model.ColPointsSubtotal]),
			Bonus:           formula.Number(row[model.ColBonus]),
			PointsTotal:     formula.Number(row[model.ColPointsTotal]),
			Notes:           KeyString(row[model.ColNotes]),
		}
		if hasSprint {
			if s := KeyString(row[model.ColSprint]); !IsPlaceholder(s) {
				rec.Sprint = &s
			}
		}
		records = append(records, rec)
	}
	return model.DonationTable{
		Records: records,
		Columns: model.NewColumnSet(t.Columns...),
	}, stats, skipped
}

// blank reports whether every cell of row is empty.
func blank(row model.Row) bool {
	for _, v := range row {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && KeyString(s) == "" {
			continue
		}
		return false
	}
	return true
}

// String implements fmt.Stringer for log output.
func (r Report) String() string {
	return fmt.Sprintf("formulas_resolved=%d cells_defaulted=%d blank_rows=%d duplicate_names=%d donations_missing=%t",
		r.Formula.Resolved, r.Formula.Defaulted, r.SkippedBlankRows, len(r.DuplicateNames), r.DonationsMissing)
}
