package console

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-logr/logr/testr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aditip149209/okview/pkg/binding"
	"github.com/aditip149209/okview/pkg/node"
	"github.com/aditip149209/okview/pkg/table"
)

func TestClusterView(t *testing.T) {
	backend := &flaky{n: 3}
	reg := binding.NewRegistry()
	reg.Register(ClusterTag, backend, binding.WithDefaultSort(node.ColName, table.Asc))
	svc := binding.New(reg, binding.WithLogger(testr.New(t)))
	t.Cleanup(svc.Close)

	scope := binding.NewScope("cluster-page")
	v, err := NewClusterView(svc, scope, testr.New(t))
	require.NoError(t, err)
	assert.Same(t, scope, v.Scope())
	svc.Wait()
	assert.Equal(t, 3, scope.Snapshot().RowCount())
	assert.Equal(t, binding.Bound, scope.State())

	require.NoError(t, scope.Sort(node.ColCores, table.Desc))
	svc.Wait()
	dir, ok := scope.Snapshot().Icon(node.ColCores)
	require.True(t, ok)
	assert.Equal(t, table.Desc, dir)

	backend.set(5, nil)
	v.Refresh()
	svc.Wait()
	snap := scope.Snapshot()
	assert.Equal(t, 5, snap.RowCount())
	assert.Empty(t, snap.Icons)
	assert.Equal(t, binding.SortState{Column: node.ColCores, Dir: table.Desc}, snap.Sort)
	assert.Equal(t, "10", snap.Rows[0].String(node.ColCores))

	v.Close()
	assert.Equal(t, binding.Unbound, scope.State())
}

func TestClusterViewUnregistered(t *testing.T) {
	svc := binding.New(binding.NewRegistry())
	t.Cleanup(svc.Close)
	scope := binding.NewScope("cluster-page")

	_, err := NewClusterView(svc, scope, testr.New(t))
	assert.ErrorIs(t, err, binding.ErrUnknownResource)
	assert.Equal(t, binding.Unbound, scope.State())
}

func TestViewEndpoint(t *testing.T) {
	backend := &flaky{n: 2}
	reg := binding.NewRegistry()
	reg.Register(ClusterTag, backend,
		binding.WithColumns(node.ColName, node.ColMemory),
		binding.WithDefaultSort(node.ColMemory, table.Desc))
	prom := prometheus.NewRegistry()
	metrics := binding.NewMetrics(prom)
	svc := binding.New(reg, binding.WithLogger(testr.New(t)), binding.WithMetrics(metrics))
	t.Cleanup(svc.Close)

	v, err := NewClusterView(svc, binding.NewScope("cluster-page"), testr.New(t))
	require.NoError(t, err)
	t.Cleanup(v.Close)
	svc.Wait()

	s := NewServer("", 0, reg, WithMetrics(metrics))
	s.AddView(ClusterTag, v.Scope())
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	status, tr := getTable(t, srv.URL+"/api/views/cluster")
	require.Equal(t, 200, status)
	assert.Equal(t, []string{node.ColName, node.ColMemory}, tr.Columns)
	require.Len(t, tr.Rows, 2)
	assert.Equal(t, "2.0 GiB", tr.Rows[0][node.ColMemory])
	assert.Equal(t, "memory", tr.SortCol)
	assert.Equal(t, "desc", tr.SortDir)
	assert.False(t, tr.Stale)

	backend.set(0, errors.New("store unreachable"))
	v.Refresh()
	svc.Wait()
	status, tr = getTable(t, srv.URL+"/api/views/cluster")
	require.Equal(t, 200, status)
	assert.Len(t, tr.Rows, 2)
	assert.True(t, tr.Stale)
	assert.Contains(t, tr.Error, "store unreachable")

	status, _ = getTable(t, srv.URL+"/api/views/containers")
	assert.Equal(t, 404, status)

	require.NoError(t, testutil.GatherAndCompare(prom, strings.NewReader(`
# HELP okview_table_bindings Scopes currently bound to a table resource.
# TYPE okview_table_bindings gauge
okview_table_bindings 1
# HELP okview_table_fetches_total Table fetches by tag and outcome (applied, failed, discarded).
# TYPE okview_table_fetches_total counter
okview_table_fetches_total{outcome="applied",tag="cluster"} 1
okview_table_fetches_total{outcome="failed",tag="cluster"} 1
`), "okview_table_bindings", "okview_table_fetches_total"))
}
