package source

import (
	"strings"

	"github.com/okian/gincana/internal/domain/model"
)

// toTable turns a header row plus data rows into a raw table. Columns with a
// blank header are dropped and empty cells become nil.
func toTable(name string, rows [][]string) *model.Table {
	t := &model.Table{Name: name, Columns: []string{}, Rows: []model.Row{}}
	if len(rows) == 0 {
		return t
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		h = strings.TrimSpace(h)
		header[i] = h
		if h != "" {
			t.Columns = append(t.Columns, h)
		}
	}

	for _, cells := range rows[1:] {
		row := make(model.Row, len(t.Columns))
		for _, col := range t.Columns {
			row[col] = nil
		}
		for i, v := range cells {
			if i >= len(header) || header[i] == "" {
				continue
			}
			if strings.TrimSpace(v) == "" {
				continue
			}
			row[header[i]] = v
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}
