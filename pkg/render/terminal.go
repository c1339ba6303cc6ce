// Package render draws bound scopes on a terminal.
package render

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	pretty "github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/aditip149209/okview/pkg/binding"
	"github.com/aditip149209/okview/pkg/table"
)

const (
	iconAsc     = "▲"
	iconDesc    = "▼"
	selectedRow = "›"
	clearScreen = "\033[H\033[2J"
)

type Terminal struct {
	out   io.Writer
	style pretty.Style
	// Clear redraws from the top of the screen instead of appending.
	Clear bool

	mu sync.Mutex
}

func NewTerminal(out io.Writer) *Terminal {
	style := pretty.StyleLight
	style.Format.Header = text.FormatDefault
	return &Terminal{out: out, style: style}
}

func icon(d table.SortDir) string {
	if d == table.Desc {
		return iconDesc
	}
	return iconAsc
}

// Render formats a snapshot: a marker column for the selected row, one
// column per table column with its sort icon, and a caption with the row
// count, the sort order and the last fetch error.
func (t *Terminal) Render(s binding.Snapshot) string {
	tw := pretty.NewWriter()
	tw.SetStyle(t.style)

	header := pretty.Row{""}
	for _, c := range s.Columns {
		if d, ok := s.Icon(c); ok {
			header = append(header, c+" "+icon(d))
			continue
		}
		header = append(header, c)
	}
	tw.AppendHeader(header)

	idCol := idColumn(s)
	for _, r := range s.Rows {
		mark := ""
		if s.Selected != "" && r.String(idCol) == s.Selected {
			mark = selectedRow
		}
		row := pretty.Row{mark}
		for _, c := range s.Columns {
			row = append(row, r.String(c))
		}
		tw.AppendRow(row)
	}
	tw.SetColumnConfigs([]pretty.ColumnConfig{{Number: 1, Align: text.AlignCenter}})

	caption := []string{fmt.Sprintf("%s: %d rows", s.Tag, s.RowCount())}
	if !s.Sort.IsZero() {
		caption = append(caption, fmt.Sprintf("sorted by %s %s", s.Sort.Column, s.Sort.Dir))
	}
	if s.Err != "" {
		caption = append(caption, "stale: "+s.Err)
	}
	tw.SetCaption(strings.Join(caption, ", "))
	return tw.Render()
}

// the id column is the first one, unless the table has an "id" column
func idColumn(s binding.Snapshot) string {
	for _, c := range s.Columns {
		if c == binding.DefaultIDColumn {
			return c
		}
	}
	if len(s.Columns) > 0 {
		return s.Columns[0]
	}
	return ""
}

func (t *Terminal) Draw(s binding.Snapshot) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.Render(s) + "\n"
	if t.Clear {
		out = clearScreen + out
	}
	_, err := io.WriteString(t.out, out)
	return err
}

// Watch draws the scope now and again after every scope event, until ctx is
// done.
func (t *Terminal) Watch(ctx context.Context, scope *binding.Scope) error {
	events, cancel := scope.Subscribe()
	defer cancel()
	if err := t.Draw(scope.Snapshot()); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-events:
			if !ok {
				return nil
			}
			if err := t.Draw(scope.Snapshot()); err != nil {
				return err
			}
		}
	}
}
