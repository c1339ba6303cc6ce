package worker

import (
	"context"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/aditip149209/okview/pkg/node"
)

// TaskCounter reports how many workloads run on the worker's host.
type TaskCounter interface {
	Count(ctx context.Context) (int, error)
}

type Worker struct {
	ID   uuid.UUID
	Name string
	Ip   string
	Api  string
	Role string

	proc  procReader
	tasks TaskCounter
	log   logr.Logger
	now   func() time.Time

	mu        sync.RWMutex
	stats     *Stats
	collected time.Time
}

type Option func(*Worker)

func WithLogger(l logr.Logger) Option {
	return func(w *Worker) { w.log = l }
}

// WithProcRoot reads /proc and disk usage below root instead of "/".
func WithProcRoot(root string) Option {
	return func(w *Worker) { w.proc = procReader{root: root} }
}

func WithTaskCounter(c TaskCounter) Option {
	return func(w *Worker) { w.tasks = c }
}

func WithID(id uuid.UUID) Option {
	return func(w *Worker) { w.ID = id }
}

func New(name, ip, api string, opts ...Option) *Worker {
	w := &Worker{
		ID:   uuid.New(),
		Name: name,
		Ip:   ip,
		Api:  api,
		Role: "worker",
		proc: procReader{root: "/"},
		log:  logr.Discard(),
		now:  time.Now,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Collect takes one reading of the host statistics.
func (w *Worker) Collect(ctx context.Context) error {
	s, err := w.proc.read()
	if err != nil {
		return err
	}
	if w.tasks != nil {
		n, err := w.tasks.Count(ctx)
		if err != nil {
			w.log.Error(err, "Counting tasks failed")
		} else {
			s.TaskCount = n
		}
	}
	w.mu.Lock()
	w.stats = s
	w.collected = w.now()
	w.mu.Unlock()
	return nil
}

// CollectStats refreshes the statistics every interval until ctx is done.
func (w *Worker) CollectStats(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if err := w.Collect(ctx); err != nil {
			w.log.Error(err, "Collecting stats failed")
		} else {
			w.log.V(1).Info("Collected stats", "worker", w.Name)
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func (w *Worker) Stats() *Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

// Node describes the worker host as a cluster node. Before the first
// collection the node is reported in the unknown state.
func (w *Worker) Node() node.Node {
	w.mu.RLock()
	defer w.mu.RUnlock()
	n := node.Node{
		ID:    w.ID,
		Name:  w.Name,
		Ip:    w.Ip,
		Api:   w.Api,
		Role:  w.Role,
		State: node.Unknown,
	}
	if w.stats == nil {
		return n
	}
	s := w.stats
	n.State = node.Up
	n.Cores = s.Cores
	n.Memory = int64(s.MemTotalKb()) * 1024
	n.MemoryAllocated = int64(s.MemUsedKb()) * 1024
	n.Disk = int64(s.DiskTotal())
	n.DiskAllocated = int64(s.DiskUsed())
	n.Load = s.Load1()
	n.TaskCount = s.TaskCount
	n.LastSeen = w.collected
	return n
}
