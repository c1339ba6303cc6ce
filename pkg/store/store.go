package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/aditip149209/okview/pkg/node"
)

var ErrNotFound = errors.New("node not found")

// Store keeps the last known record of every cluster node.
type Store interface {
	Put(ctx context.Context, n node.Node) error
	Get(ctx context.Context, id uuid.UUID) (node.Node, error)
	List(ctx context.Context) ([]node.Node, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type Memory struct {
	mu    sync.RWMutex
	nodes map[uuid.UUID]node.Node
}

func NewMemory() *Memory {
	return &Memory{nodes: map[uuid.UUID]node.Node{}}
}

func (m *Memory) Put(_ context.Context, n node.Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes[n.ID] = n
	return nil
}

func (m *Memory) Get(_ context.Context, id uuid.UUID) (node.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[id]
	if !ok {
		return node.Node{}, ErrNotFound
	}
	return n, nil
}

// List returns the nodes ordered by name, then id.
func (m *Memory) List(_ context.Context) ([]node.Node, error) {
	m.mu.RLock()
	out := make([]node.Node, 0, len(m.nodes))
	for _, n := range m.nodes {
		out = append(out, n)
	}
	m.mu.RUnlock()
	sortNodes(out)
	return out, nil
}

func (m *Memory) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.nodes[id]; !ok {
		return ErrNotFound
	}
	delete(m.nodes, id)
	return nil
}

func sortNodes(nodes []node.Node) {
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Name != nodes[j].Name {
			return nodes[i].Name < nodes[j].Name
		}
		return nodes[i].ID.String() < nodes[j].ID.String()
	})
}
