package source

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"

	"github.com/aditip149209/okview/pkg/table"
)

// column ids of the containers table
const (
	ColContainerID = "id"
	ColName        = "name"
	ColImage       = "image"
	ColState       = "state"
	ColStatus      = "status"
	ColPorts       = "ports"
	ColCreated     = "created"
)

var ContainerColumns = []string{
	ColContainerID, ColName, ColImage, ColState, ColStatus, ColPorts, ColCreated,
}

type containerLister interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]types.Container, error)
}

// Docker serves the containers of the local docker daemon. It also counts
// the running ones for a worker.
type Docker struct {
	cli   containerLister
	close func() error
}

// NewDocker connects with the usual DOCKER_HOST environment.
func NewDocker() (*Docker, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}
	return &Docker{cli: cli, close: cli.Close}, nil
}

func (d *Docker) Close() error {
	if d.close == nil {
		return nil
	}
	return d.close()
}

func (d *Docker) Fetch(ctx context.Context, _ string) (*table.Model, error) {
	cs, err := d.cli.ContainerList(ctx, container.ListOptions{All: true})
	if err != nil {
		return nil, fmt.Errorf("listing containers: %w", err)
	}
	return ContainerTable(cs), nil
}

// Count returns the number of running containers.
func (d *Docker) Count(ctx context.Context) (int, error) {
	cs, err := d.cli.ContainerList(ctx, container.ListOptions{})
	if err != nil {
		return 0, fmt.Errorf("listing containers: %w", err)
	}
	return len(cs), nil
}

func ContainerTable(cs []types.Container) *table.Model {
	tm := table.MustNew(ContainerColumns...)
	_ = tm.SetComparator(ColCreated, table.TimeComparator)
	_ = tm.SetFormatter(ColCreated, table.TimeFormatter)
	for _, c := range cs {
		tm.AddRow().
			Cell(ColContainerID, shortID(c.ID)).
			Cell(ColName, containerName(c.Names)).
			Cell(ColImage, c.Image).
			Cell(ColState, c.State).
			Cell(ColStatus, c.Status).
			Cell(ColPorts, FormatPorts(c.Ports)).
			Cell(ColCreated, time.Unix(c.Created, 0).UTC())
	}
	return tm
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func containerName(names []string) string {
	if len(names) == 0 {
		return ""
	}
	return strings.TrimPrefix(names[0], "/")
}

// FormatPorts renders ports the way `docker ps` does, for example
// "0.0.0.0:8080->80/tcp, 443/tcp".
func FormatPorts(ports []types.Port) string {
	out := make([]string, 0, len(ports))
	for _, p := range ports {
		np, err := nat.NewPort(p.Type, strconv.Itoa(int(p.PrivatePort)))
		if err != nil {
			continue
		}
		if p.PublicPort == 0 {
			out = append(out, string(np))
			continue
		}
		out = append(out, fmt.Sprintf("%s:%d->%s", p.IP, p.PublicPort, np))
	}
	sort.Strings(out)
	return strings.Join(out, ", ")
}
