// Package formula resolves spreadsheet cells that were typed as textual
// formulas (for example "=G5*H5") into plain numbers.
//
// Detection is guarded: a string is only treated as a formula when it holds
// an '=' and references both the quantity column and the unit-points column.
// The loose rule (any '=' is a formula) misparses organic text such as notes
// containing "=" and is only available behind WithLooseDetection.
package formula

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/okian/gincana/internal/domain/model"
	"github.com/xuri/excelize/v2"
)

// Default workbook column letters for the donation sheet.
const (
	defaultQuantityLetter   = "G"
	defaultUnitPointsLetter = "H"
)

// DefaultNumericColumns lists the donation columns coerced to numbers.
var DefaultNumericColumns = []string{ //nolint:gochecknoglobals // read-only default
	model.ColQuantity,
	model.ColUnitPoints,
	model.ColPointsSubtotal,
	model.ColBonus,
	model.ColPointsTotal,
}

// Option applies a configuration option to the Coercer.
type Option func(*Coercer)

// WithColumnLetters sets the workbook letters of the quantity and unit-points columns.
func WithColumnLetters(quantity, unitPoints string) Option {
	return func(c *Coercer) {
		if q := strings.ToUpper(strings.TrimSpace(quantity)); q != "" {
			c.quantityLetter = q
		}
		if u := strings.ToUpper(strings.TrimSpace(unitPoints)); u != "" {
			c.unitPointsLetter = u
		}
	}
}

// WithLooseDetection treats every string containing '=' as a formula and
// applies the legacy fragment-stripping extraction. Known to misparse notes.
func WithLooseDetection() Option {
	return func(c *Coercer) {
		c.loose = true
	}
}

// WithNumericColumns replaces the set of columns coerced by CoerceRow.
func WithNumericColumns(columns ...string) Option {
	return func(c *Coercer) {
		if len(columns) > 0 {
			c.columns = append([]string(nil), columns...)
		}
	}
}

// Stats counts what happened to the cells of a coerced row.
type Stats struct {
	// Resolved is the number of formula cells turned into numbers.
	Resolved int
	// Defaulted is the number of non-numeric or negative cells replaced by 0.
	Defaulted int
}

// Add accumulates other into s.
func (s *Stats) Add(other Stats) {
	s.Resolved += other.Resolved
	s.Defaulted += other.Defaulted
}

// Coercer converts numeric-looking cells into float64 values.
type Coercer struct {
	quantityLetter   string
	unitPointsLetter string
	loose            bool
	columns          []string
}

// New creates a Coercer with the workbook defaults.
func New(opts ...Option) *Coercer {
	c := &Coercer{
		quantityLetter:   defaultQuantityLetter,
		unitPointsLetter: defaultUnitPointsLetter,
		columns:          DefaultNumericColumns,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Loose reports whether the legacy detection rule is active.
func (c *Coercer) Loose() bool { return c.loose }

// Columns returns the configured numeric columns.
func (c *Coercer) Columns() []string { return append([]string(nil), c.columns...) }

// Detect reports whether cell should be treated as a formula.
func (c *Coercer) Detect(cell model.Cell) bool {
	s, ok := cell.(string)
	if !ok || !strings.Contains(s, "=") {
		return false
	}
	if c.loose {
		return true
	}
	var hasQuantity, hasUnitPoints bool
	for _, token := range references(s) {
		switch token.column {
		case c.quantityLetter:
			hasQuantity = true
		case c.unitPointsLetter:
			hasUnitPoints = true
		}
	}
	return hasQuantity && hasUnitPoints
}

// Resolve extracts the leading factor of a formula cell. A leading reference
// to the quantity (or unit-points) column resolves against row, which must
// already hold coerced numbers for those columns; other leading factors are
// stripped of reference fragments and parsed as literals. Returns false when
// the factor cannot be read, callers then fall back to Number.
func (c *Coercer) Resolve(cell model.Cell, row model.Row) (float64, bool) {
	s, ok := cell.(string)
	if !ok {
		return 0, false
	}
	if c.loose {
		return c.resolveLegacy(s)
	}

	expr := s[strings.Index(s, "=")+1:]
	lead := expr
	if i := strings.Index(expr, "*"); i >= 0 {
		lead = expr[:i]
	}
	lead = strings.TrimSpace(lead)

	if ref, ok := parseReference(lead); ok {
		switch ref.column {
		case c.quantityLetter:
			return number(row[model.ColQuantity])
		case c.unitPointsLetter:
			return number(row[model.ColUnitPoints])
		}
	}

	lead = strings.NewReplacer("$", "", c.quantityLetter, "", c.unitPointsLetter, "").Replace(lead)
	return parseFloat(lead)
}

// resolveLegacy is the loose rule: drop "=G" and "*H",
// keep everything before the first remaining '*'.
func (c *Coercer) resolveLegacy(s string) (float64, bool) {
	s = strings.ReplaceAll(s, "="+c.quantityLetter, "")
	s = strings.ReplaceAll(s, "*"+c.unitPointsLetter, "")
	if i := strings.Index(s, "*"); i >= 0 {
		s = s[:i]
	}
	return parseFloat(s)
}

// Value coerces a single cell, resolving formulas first. Negative results
// are clamped to 0 and counted as defaulted.
func (c *Coercer) Value(cell model.Cell, row model.Row) (float64, Stats) {
	var st Stats
	if c.Detect(cell) {
		if v, ok := c.Resolve(cell, row); ok {
			if v < 0 {
				st.Defaulted++
				return 0, st
			}
			st.Resolved++
			return v, st
		}
	}
	v, ok := number(cell)
	if !ok || v < 0 {
		st.Defaulted++
		return 0, st
	}
	return v, st
}

// CoerceRow returns a copy of row where every configured numeric column holds
// a float64. Quantity and unit points are coerced first so that formulas in
// the other columns can reference them. Missing values become 0.
func (c *Coercer) CoerceRow(row model.Row) (model.Row, Stats) {
	out := row.Clone()
	var total Stats
	for _, col := range c.ordered() {
		v, st := c.Value(row[col], out)
		out[col] = v
		total.Add(st)
	}
	return out, total
}

func (c *Coercer) ordered() []string {
	cols := make([]string, 0, len(c.columns))
	for _, first := range []string{model.ColQuantity, model.ColUnitPoints} {
		for _, col := range c.columns {
			if col == first {
				cols = append(cols, col)
			}
		}
	}
	for _, col := range c.columns {
		if col != model.ColQuantity && col != model.ColUnitPoints {
			cols = append(cols, col)
		}
	}
	return cols
}

// Number coerces cell to a float64. Anything unparseable is 0.
func Number(cell model.Cell) float64 {
	v, _ := number(cell)
	return v
}

// number reports false when the cell held no usable number.
func number(cell model.Cell) (float64, bool) {
	switch v := cell.(type) {
	case nil:
		return 0, false
	case float64:
		return finite(v)
	case float32:
		return finite(float64(v))
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		return parseFloat(v)
	case time.Time:
		return 0, false
	default:
		return 0, false
	}
}

func finite(v float64) (float64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// parseFloat accepts "12.5" and the comma-decimal "12,5".
func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return finite(v)
	}
	if !strings.Contains(s, ".") && strings.Count(s, ",") == 1 {
		if v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64); err == nil {
			return finite(v)
		}
	}
	return 0, false
}

type reference struct {
	column string
	row    int
}

func parseReference(token string) (reference, bool) {
	token = strings.ReplaceAll(strings.TrimSpace(token), "$", "")
	if token == "" {
		return reference{}, false
	}
	col, row, err := excelize.SplitCellName(strings.ToUpper(token))
	if err != nil {
		return reference{}, false
	}
	return reference{column: col, row: row}, true
}

// references lists the cell references of a formula expression.
func references(s string) []reference {
	expr := s[strings.Index(s, "=")+1:]
	fields := strings.FieldsFunc(expr, func(r rune) bool {
		switch r {
		case '*', '+', '-', '/', '(', ')', ' ', ',', ';', '^':
			return true
		}
		return false
	})
	refs := make([]reference, 0, len(fields))
	for _, f := range fields {
		if ref, ok := parseReference(f); ok {
			refs = append(refs, ref)
		}
	}
	return refs
}
