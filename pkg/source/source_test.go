package source

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/go-logr/logr/testr"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aditip149209/okview/pkg/binding"
	"github.com/aditip149209/okview/pkg/console"
	"github.com/aditip149209/okview/pkg/node"
	"github.com/aditip149209/okview/pkg/table"
)

func sample() *table.Model {
	m := table.MustNew("id", "name", "cores")
	_ = m.SetComparator("cores", table.IntComparator)
	m.AddRow().Cell("id", "1").Cell("name", "bravo").Cell("cores", 16)
	m.AddRow().Cell("id", "2").Cell("name", "alpha").Cell("cores", 4)
	m.AddRow().Cell("id", "3").Cell("name", "charlie").Cell("cores", 8)
	return m
}

func TestStatic(t *testing.T) {
	ctx := context.Background()
	s := NewStatic(sample())

	m, err := s.Fetch(ctx, "cluster")
	require.NoError(t, err)
	require.NoError(t, m.Sort("name", table.Asc))
	again, err := s.Fetch(ctx, "cluster")
	require.NoError(t, err)
	assert.Equal(t, "bravo", again.Rows()[0].String("name"))

	s.Fail(errors.New("boom"))
	_, err = s.Fetch(ctx, "cluster")
	assert.EqualError(t, err, "boom")

	s.Set(nil)
	m, err = s.Fetch(ctx, "cluster")
	assert.NoError(t, err)
	assert.Nil(t, m)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.Fetch(cancelled, "cluster")
	assert.ErrorIs(t, err, context.Canceled)
}

func remoteConsole(t *testing.T) *httptest.Server {
	t.Helper()
	reg := binding.NewRegistry()
	reg.Register("cluster", NewStatic(sample()), binding.WithDefaultSort("name", table.Asc))
	srv := httptest.NewServer(console.NewServer("", 0, reg, console.WithLogger(testr.New(t))).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTP(t *testing.T) {
	ctx := context.Background()
	srv := remoteConsole(t)
	h := NewHTTP(srv.URL + "/")

	tags, err := h.Tags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"cluster"}, tags)

	m, err := h.Fetch(ctx, "cluster")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "cores"}, m.Columns())
	require.Equal(t, 3, m.RowCount())
	assert.Equal(t, "alpha", m.Rows()[0].String("name"))

	require.NoError(t, m.Sort("cores", table.Desc))
	assert.Equal(t, []string{"16", "8", "4"}, []string{
		m.Rows()[0].String("cores"), m.Rows()[1].String("cores"), m.Rows()[2].String("cores"),
	})

	h.Sort = binding.SortState{Column: "cores", Dir: table.Desc}
	m, err = h.Fetch(ctx, "cluster")
	require.NoError(t, err)
	assert.Equal(t, "bravo", m.Rows()[0].String("name"))
}

func TestHTTPErrors(t *testing.T) {
	ctx := context.Background()
	srv := remoteConsole(t)

	_, err := NewHTTP(srv.URL).Fetch(ctx, "routers")
	var ure *binding.UnknownResourceError
	require.ErrorAs(t, err, &ure)
	assert.Equal(t, "routers", ure.Tag)

	h := NewHTTP(srv.URL)
	h.Sort = binding.SortState{Column: "disk"}
	_, err = h.Fetch(ctx, "cluster")
	assert.ErrorIs(t, err, binding.ErrTransientFetch)
	assert.ErrorContains(t, err, "unknown sort column")

	srv.Close()
	_, err = NewHTTP(srv.URL).Fetch(ctx, "cluster")
	assert.ErrorIs(t, err, binding.ErrTransientFetch)
}

func TestHTTPBinding(t *testing.T) {
	srv := remoteConsole(t)
	reg := binding.NewRegistry()
	reg.Register("cluster", NewHTTP(srv.URL), binding.WithDefaultSort("cores", table.Asc))
	svc := binding.New(reg, binding.WithLogger(testr.New(t)))
	t.Cleanup(svc.Close)

	scope := binding.NewScope("remote")
	_, err := svc.Bind(scope, "cluster")
	require.NoError(t, err)
	svc.Wait()

	snap := scope.Snapshot()
	require.Equal(t, 3, snap.RowCount())
	assert.Empty(t, snap.Err)
	assert.Equal(t, "4", snap.Rows[0].String("cores"))
	assert.Equal(t, "16", snap.Rows[2].String("cores"))
}

func TestHTTPBindingSortsByteColumns(t *testing.T) {
	nodes := []node.Node{
		{ID: uuid.New(), Name: "small", Memory: 512 << 20, State: node.Up},
		{ID: uuid.New(), Name: "big", Memory: 2 << 30, State: node.Up},
		{ID: uuid.New(), Name: "huge", Memory: 16 << 30, State: node.Up},
	}
	creg := binding.NewRegistry()
	creg.Register("cluster", NewStatic(node.Table(nodes)))
	srv := httptest.NewServer(console.NewServer("", 0, creg).Handler())
	t.Cleanup(srv.Close)

	reg := binding.NewRegistry()
	reg.Register("cluster", NewHTTP(srv.URL))
	svc := binding.New(reg, binding.WithLogger(testr.New(t)))
	t.Cleanup(svc.Close)
	scope := binding.NewScope("remote")

	names := func() []string {
		var out []string
		for _, r := range scope.Snapshot().Rows {
			out = append(out, r.String(node.ColName))
		}
		return out
	}

	_, err := svc.Bind(scope, "cluster", binding.Config{
		DefaultSort: binding.SortState{Column: node.ColMemory, Dir: table.Desc},
	})
	require.NoError(t, err)
	svc.Wait()
	require.Empty(t, scope.Snapshot().Err)
	assert.Equal(t, []string{"huge", "big", "small"}, names())

	require.NoError(t, scope.Sort(node.ColMemory, table.Asc))
	svc.Wait()
	assert.Equal(t, []string{"small", "big", "huge"}, names())

	scope.Refresh()
	svc.Wait()
	assert.Equal(t, []string{"small", "big", "huge"}, names())
}

func TestNumericComparator(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"9", "10", -1},
		{"10", "9", 1},
		{"2.5", "2.5", 0},
		{"abc", "abd", -1},
		{"10", "abc", -1},
	}
	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, NumericComparator.Compare(tt.a, tt.b))
		})
	}
}

type fakeDocker struct {
	all     []types.Container
	err     error
	options []container.ListOptions
}

func (f *fakeDocker) ContainerList(_ context.Context, o container.ListOptions) ([]types.Container, error) {
	f.options = append(f.options, o)
	if f.err != nil {
		return nil, f.err
	}
	if o.All {
		return f.all, nil
	}
	var running []types.Container
	for _, c := range f.all {
		if c.State == "running" {
			running = append(running, c)
		}
	}
	return running, nil
}

func TestDocker(t *testing.T) {
	ctx := context.Background()
	fake := &fakeDocker{all: []types.Container{
		{
			ID:      "4f2a8c1e9b7d6a5f3e2d1c0b",
			Names:   []string{"/web"},
			Image:   "nginx:1.27",
			State:   "running",
			Status:  "Up 2 hours",
			Created: 1700000000,
			Ports: []types.Port{
				{PrivatePort: 443, Type: "tcp"},
				{IP: "0.0.0.0", PrivatePort: 80, PublicPort: 8080, Type: "tcp"},
			},
		},
		{ID: "abc", Names: nil, Image: "redis", State: "exited", Status: "Exited (0)"},
	}}
	d := &Docker{cli: fake}

	m, err := d.Fetch(ctx, "containers")
	require.NoError(t, err)
	assert.Equal(t, ContainerColumns, m.Columns())
	require.Equal(t, 2, m.RowCount())
	web := m.Rows()[0]
	assert.Equal(t, "4f2a8c1e9b7d", web.String(ColContainerID))
	assert.Equal(t, "web", web.String(ColName))
	assert.Equal(t, "0.0.0.0:8080->80/tcp, 443/tcp", web.String(ColPorts))
	assert.Equal(t, "2023-11-14T22:13:20Z", web.String(ColCreated))
	assert.Equal(t, "", m.Rows()[1].String(ColName))

	n, err := d.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []container.ListOptions{{All: true}, {}}, fake.options)

	fake.err = errors.New("cannot connect to the docker daemon")
	_, err = d.Fetch(ctx, "containers")
	assert.ErrorContains(t, err, "listing containers")
	_, err = d.Count(ctx)
	assert.Error(t, err)
	assert.NoError(t, d.Close())
}
