package console

import (
	"github.com/aditip149209/okview/pkg/binding"
	"github.com/aditip149209/okview/pkg/table"
)

type ErrResponse struct {
	HTTPStatusCode int    `json:"status"`
	Message        string `json:"message"`
}

// TableResponse is a table as served by the console: cells are already
// formatted and rows are in display order.
type TableResponse struct {
	Tag     string              `json:"tag"`
	Columns []string            `json:"columns"`
	Rows    []map[string]string `json:"rows"`
	SortCol string              `json:"sortCol,omitempty"`
	SortDir string              `json:"sortDir,omitempty"`
	// Stale is set when the backend failed and the last good table is served.
	Stale bool   `json:"stale,omitempty"`
	Error string `json:"error,omitempty"`
}

func newTableResponse(tag string, m *table.Model) TableResponse {
	cols := m.Columns()
	tr := TableResponse{
		Tag:     tag,
		Columns: cols,
		Rows:    make([]map[string]string, 0, m.RowCount()),
	}
	for _, r := range m.Rows() {
		row := make(map[string]string, len(cols))
		for _, c := range cols {
			row[c] = r.String(c)
		}
		tr.Rows = append(tr.Rows, row)
	}
	return tr
}

func newSnapshotResponse(snap binding.Snapshot) TableResponse {
	tr := TableResponse{
		Tag:     snap.Tag,
		Columns: snap.Columns,
		Rows:    make([]map[string]string, 0, len(snap.Rows)),
		Stale:   snap.Err != "",
		Error:   snap.Err,
	}
	for _, r := range snap.Rows {
		row := make(map[string]string, len(snap.Columns))
		for _, c := range snap.Columns {
			row[c] = r.String(c)
		}
		tr.Rows = append(tr.Rows, row)
	}
	if !snap.Sort.IsZero() {
		tr.SortCol, tr.SortDir = snap.Sort.Column, snap.Sort.Dir.String()
	}
	return tr
}

// Model rebuilds a table of string cells in the served order.
func (tr TableResponse) Model() (*table.Model, error) {
	m, err := table.New(tr.Columns...)
	if err != nil {
		return nil, err
	}
	for _, r := range tr.Rows {
		row := m.AddRow()
		for _, c := range tr.Columns {
			if v, ok := r[c]; ok {
				row.Cell(c, v)
			}
		}
	}
	return m, nil
}
