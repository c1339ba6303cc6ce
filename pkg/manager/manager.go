package manager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/golang-collections/collections/queue"
	"github.com/google/uuid"

	"github.com/aditip149209/okview/pkg/node"
	"github.com/aditip149209/okview/pkg/store"
	"github.com/aditip149209/okview/pkg/table"
)

// Manager polls its workers for their node records and keeps the latest of
// each in a store. It serves the "cluster" table from that store.
type Manager struct {
	Pending        queue.Queue
	Workers        []string
	WorkersNodeMap map[string]uuid.UUID

	store  store.Store
	client *http.Client
	log    logr.Logger
	now    func() time.Time

	mu sync.Mutex
}

type Option func(*Manager)

func WithLogger(l logr.Logger) Option {
	return func(m *Manager) { m.log = l }
}

func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) { m.client = c }
}

func New(workers []string, st store.Store, opts ...Option) *Manager {
	m := &Manager{
		Pending:        *queue.New(),
		WorkersNodeMap: map[string]uuid.UUID{},
		store:          st,
		client:         &http.Client{Timeout: 5 * time.Second},
		log:            logr.Discard(),
		now:            time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	for _, w := range workers {
		m.AddWorker(w)
	}
	return m
}

// AddWorker registers a worker api address and queues it for the next poll.
func (m *Manager) AddWorker(addr string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.Workers {
		if w == addr {
			return
		}
	}
	m.Workers = append(m.Workers, addr)
	m.Pending.Enqueue(addr)
}

// UpdateNodes polls every queued worker once, then queues each worker exactly
// once for the next round. Unreachable workers that were seen before are marked down.
func (m *Manager) UpdateNodes(ctx context.Context) error {
	m.mu.Lock()
	pending := make([]string, 0, m.Pending.Len())
	for m.Pending.Len() > 0 {
		pending = append(pending, m.Pending.Dequeue().(string))
	}
	m.mu.Unlock()

	var errs []error
	for _, addr := range pending {
		if err := m.pollWorker(ctx, addr); err != nil {
			errs = append(errs, err)
		}
	}

	m.mu.Lock()
	m.Pending = *queue.New()
	for _, w := range m.Workers {
		m.Pending.Enqueue(w)
	}
	m.mu.Unlock()
	return errors.Join(errs...)
}

func (m *Manager) pollWorker(ctx context.Context, addr string) error {
	n, err := m.getNode(ctx, addr)
	if err != nil {
		m.log.Error(err, "Polling worker failed", "worker", addr)
		return m.markDown(ctx, addr, err)
	}
	n.Api = addr
	n.LastSeen = m.now()
	if n.State == "" {
		n.State = node.Up
	}

	m.mu.Lock()
	old, known := m.WorkersNodeMap[addr]
	m.WorkersNodeMap[addr] = n.ID
	m.mu.Unlock()

	if err := m.store.Put(ctx, n); err != nil {
		return fmt.Errorf("storing node of worker %s: %w", addr, err)
	}
	// a restarted worker reports a new id; its previous record is gone
	if known && old != n.ID {
		if err := m.store.Delete(ctx, old); err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("removing previous node of worker %s: %w", addr, err)
		}
		m.log.Info("Worker restarted with a new node id", "worker", addr, "previous", old.String(), "node", n.ID.String())
	}
	m.log.V(1).Info("Updated node", "worker", addr, "node", n.ID.String(), "state", n.State)
	return nil
}

func (m *Manager) getNode(ctx context.Context, addr string) (node.Node, error) {
	url := strings.TrimSuffix(addr, "/") + "/node"
	if !strings.Contains(url, "://") {
		url = "http://" + url
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return node.Node{}, err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return node.Node{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return node.Node{}, fmt.Errorf("worker %s answered %s", addr, resp.Status)
	}
	var n node.Node
	if err := json.NewDecoder(resp.Body).Decode(&n); err != nil {
		return node.Node{}, fmt.Errorf("decoding node from %s: %w", addr, err)
	}
	return n, nil
}

func (m *Manager) markDown(ctx context.Context, addr string, cause error) error {
	m.mu.Lock()
	id, known := m.WorkersNodeMap[addr]
	m.mu.Unlock()
	if !known {
		return fmt.Errorf("polling worker %s: %w", addr, cause)
	}
	n, err := m.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("polling worker %s: %w", addr, errors.Join(cause, err))
	}
	n.State = node.Down
	if err := m.store.Put(ctx, n); err != nil {
		return fmt.Errorf("marking worker %s down: %w", addr, err)
	}
	return fmt.Errorf("polling worker %s: %w", addr, cause)
}

// Run polls the workers every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if err := m.UpdateNodes(ctx); err != nil {
			m.log.V(1).Info("Node update round finished with errors", "error", err.Error())
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func (m *Manager) Nodes(ctx context.Context) ([]node.Node, error) {
	return m.store.List(ctx)
}

// Fetch serves the cluster table. It satisfies binding.Fetcher.
func (m *Manager) Fetch(ctx context.Context, _ string) (*table.Model, error) {
	nodes, err := m.Nodes(ctx)
	if err != nil {
		return nil, err
	}
	return node.Table(nodes), nil
}
