// Package daemon wires a worker, a manager and a console into one process.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/aditip149209/okview/pkg/binding"
	"github.com/aditip149209/okview/pkg/config"
	"github.com/aditip149209/okview/pkg/console"
	"github.com/aditip149209/okview/pkg/manager"
	"github.com/aditip149209/okview/pkg/node"
	"github.com/aditip149209/okview/pkg/source"
	"github.com/aditip149209/okview/pkg/store"
	"github.com/aditip149209/okview/pkg/table"
	"github.com/aditip149209/okview/pkg/worker"
)

const ContainersTag = "containers"

type Daemon struct {
	Config   config.Config
	Store    store.Store
	Worker   *worker.Worker
	Manager  *manager.Manager
	Registry *binding.Registry
	Console  *console.Server
	Prom     *prometheus.Registry
	// Binding hosts the pages the console serves under /api/views.
	Binding     *binding.Service
	ClusterView *console.ClusterView

	log     logr.Logger
	closers []func() error
}

func New(cfg config.Config, log logr.Logger) (*Daemon, error) {
	d := &Daemon{Config: cfg, log: log}

	switch cfg.Store.Backend {
	case "etcd":
		e, err := store.DialEtcd(cfg.Store.EtcdEndpoints, cfg.Store.EtcdPrefix, cfg.Store.DialTimeout)
		if err != nil {
			return nil, err
		}
		d.Store = e
		d.closers = append(d.closers, e.Close)
	default:
		d.Store = store.NewMemory()
	}

	wopts := []worker.Option{
		worker.WithLogger(log.WithName("worker")),
		worker.WithProcRoot(cfg.Worker.ProcRoot),
		worker.WithID(WorkerID(cfg)),
	}
	var docker *source.Docker
	if cfg.Docker.Enabled {
		var err error
		if docker, err = source.NewDocker(); err != nil {
			d.Close()
			return nil, err
		}
		d.closers = append(d.closers, docker.Close)
		wopts = append(wopts, worker.WithTaskCounter(docker))
	}
	d.Worker = worker.New(cfg.Worker.Name, cfg.Worker.Host, cfg.WorkerAddress(), wopts...)

	workers := cfg.Manager.Workers
	if len(workers) == 0 {
		workers = []string{cfg.WorkerAddress()}
	}
	d.Manager = manager.New(workers, d.Store, manager.WithLogger(log.WithName("manager")))

	d.Registry = binding.NewRegistry()
	d.Registry.Register(console.ClusterTag, d.Manager, binding.WithDefaultSort(node.ColName, table.Asc))
	if docker != nil {
		d.Registry.Register(ContainersTag, docker, binding.WithDefaultSort(source.ColName, table.Asc))
	}

	d.Prom = prometheus.NewRegistry()
	d.Prom.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := binding.NewMetrics(d.Prom)
	d.Console = console.NewServer(cfg.Console.Host, cfg.Console.Port, d.Registry,
		console.WithLogger(log.WithName("console")),
		console.WithGatherer(d.Prom),
		console.WithMetrics(metrics),
		console.WithFetchTimeout(cfg.Console.FetchTimeout),
	)

	d.Binding = binding.New(d.Registry,
		binding.WithLogger(log.WithName("binding")),
		binding.WithMetrics(metrics),
		binding.WithFetchTimeout(cfg.Console.FetchTimeout),
	)
	view, err := console.NewClusterView(d.Binding, binding.NewScope("cluster-page"), log.WithName("cluster-view"))
	if err != nil {
		d.Binding.Close()
		d.Close()
		return nil, err
	}
	d.ClusterView = view
	d.Console.AddView(console.ClusterTag, view.Scope())
	// unbind before the store closes under an in-flight fetch
	d.closers = append([]func() error{func() error {
		view.Close()
		d.Binding.Close()
		return nil
	}}, d.closers...)
	return d, nil
}

// WorkerID names the local worker by its name and api address, so a
// restarted daemon keeps its row in the cluster table.
func WorkerID(cfg config.Config) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("okview://"+cfg.Worker.Name+"@"+cfg.WorkerAddress()))
}

// Run starts every component and serves the console until ctx is done.
func (d *Daemon) Run(ctx context.Context) error {
	defer d.Close()
	cfg := d.Config

	d.log.Info("Starting okview worker", "name", cfg.Worker.Name, "address", cfg.WorkerAddress())
	go d.Worker.CollectStats(ctx, cfg.Worker.CollectInterval)
	wapi := worker.Api{Address: cfg.Worker.Host, Port: cfg.Worker.Port, Worker: d.Worker}
	go func() {
		if err := wapi.Start(); err != nil {
			d.log.Error(err, "Worker api stopped")
		}
	}()

	d.log.Info("Starting okview manager", "workers", d.Manager.Workers)
	go d.Manager.Run(ctx, cfg.Manager.PollInterval)
	mapi := manager.Api{Address: cfg.Manager.Host, Port: cfg.Manager.Port, Manager: d.Manager}
	go func() {
		if err := mapi.Start(); err != nil {
			d.log.Error(err, "Manager api stopped")
		}
	}()

	go d.refreshViews(ctx, cfg.Manager.PollInterval)

	if err := d.Console.Start(ctx); err != nil {
		return fmt.Errorf("console: %w", err)
	}
	return nil
}

// refreshViews refreshes the hosted pages once per poll round.
func (d *Daemon) refreshViews(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			d.ClusterView.Refresh()
		}
	}
}

func (d *Daemon) Close() error {
	var errs []error
	for _, c := range d.closers {
		errs = append(errs, c())
	}
	d.closers = nil
	return errors.Join(errs...)
}
