// Package source holds table backends that can be registered with a
// binding.Registry.
package source

import (
	"context"
	"sync"

	"github.com/aditip149209/okview/pkg/table"
)

// Static serves a fixed table. Set swaps the table served by later fetches.
type Static struct {
	mu    sync.Mutex
	model *table.Model
	err   error
}

func NewStatic(m *table.Model) *Static {
	return &Static{model: m}
}

func (s *Static) Set(m *table.Model) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model, s.err = m, nil
}

// Fail makes later fetches return err until the next Set.
func (s *Static) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Fetch returns a copy of the current table, so callers may sort it freely.
func (s *Static) Fetch(ctx context.Context, _ string) (*table.Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if s.model == nil {
		return nil, nil
	}
	return s.model.Project(s.model.Columns()...)
}
