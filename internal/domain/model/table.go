// Package model contains domain models passed between layers.
package model

// Source column names as they appear in the drive workbook.
const (
	ColName  = "Nome"
	ColGroup = "Grupo"

	ColCategory       = "Categoria"
	ColItemType       = "Tipo_Item"
	ColUnitPoints     = "Pontos_Unit"
	ColGroupGoal      = "Meta_Grupo"
	ColBonusCondition = "Bonus_Condicao"
	ColBonusPoints    = "Bonus_Pontos"

	ColSprint         = "SPRINT"
	ColDate           = "Data"
	ColQuantity       = "Quantidade"
	ColPointsSubtotal = "Pontos_Total"
	ColBonus          = "Bonus"
	ColPointsTotal    = "Total_Geral"
	ColNotes          = "Observações"
)

// Table names used in validation messages.
const (
	TableParticipants = "participantes"
	TableCategories   = "categorias"
	TableDonations    = "doacoes_registros"
)

// Cell is a raw spreadsheet value: nil, string, float64, int, int64, bool or time.Time.
type Cell = any

// Row maps a header name to its raw cell.
type Row map[string]Cell

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Table is one sheet of raw tabular input.
type Table struct {
	Name    string
	Columns []string
	Rows    []Row
}

// Has reports whether the table declares column.
func (t *Table) Has(column string) bool {
	if t == nil {
		return false
	}
	for _, c := range t.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// RawDataset bundles the three sheets supplied by a data source.
// A nil table means the sheet was absent from the source.
type RawDataset struct {
	Participants *Table
	Categories   *Table
	Donations    *Table
}

// ColumnSet records which optional columns were present in a source table.
type ColumnSet map[string]bool

// NewColumnSet builds a set from column names.
func NewColumnSet(columns ...string) ColumnSet {
	s := make(ColumnSet, len(columns))
	for _, c := range columns {
		s[c] = true
	}
	return s
}

// Has reports whether column is in the set.
func (s ColumnSet) Has(column string) bool { return s[column] }
