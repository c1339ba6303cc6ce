package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr/testr"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aditip149209/okview/pkg/binding"
	"github.com/aditip149209/okview/pkg/console"
	"github.com/aditip149209/okview/pkg/manager"
	"github.com/aditip149209/okview/pkg/node"
	"github.com/aditip149209/okview/pkg/source"
	"github.com/aditip149209/okview/pkg/store"
	"github.com/aditip149209/okview/pkg/table"
)

func clusterStore(t *testing.T) *store.Memory {
	t.Helper()
	st := store.NewMemory()
	for i, name := range []string{"bravo", "alpha", "charlie"} {
		require.NoError(t, st.Put(context.Background(), node.Node{
			ID: uuid.New(), Name: name, Cores: (i + 1) * 4, State: node.Up,
		}))
	}
	return st
}

func testConsole(t *testing.T) *httptest.Server {
	t.Helper()
	reg := binding.NewRegistry()
	reg.Register(console.ClusterTag, manager.New(nil, clusterStore(t)),
		binding.WithColumns(node.ColName, node.ColState, node.ColCores))
	srv := httptest.NewServer(console.NewServer("", 0, reg).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func order(out string, names ...string) bool {
	last := -1
	for _, n := range names {
		i := strings.Index(out, n)
		if i <= last {
			return false
		}
		last = i
	}
	return true
}

func TestRunView(t *testing.T) {
	log = testr.New(t)
	srv := testConsole(t)

	var out bytes.Buffer
	err := runView(context.Background(), &out, source.NewHTTP(srv.URL), viewOptions{
		Tag: console.ClusterTag, Sort: "cores", Dir: "desc",
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "cores ▼")
	assert.Contains(t, out.String(), "cluster: 3 rows, sorted by cores desc")
	assert.True(t, order(out.String(), "charlie", "alpha", "bravo"))
}

func TestRunViewSelect(t *testing.T) {
	log = testr.New(t)
	m := table.MustNew("id", "name")
	m.AddRow().Cell("id", "a1").Cell("name", "web")
	m.AddRow().Cell("id", "b2").Cell("name", "db")

	var out bytes.Buffer
	err := runView(context.Background(), &out, source.NewStatic(m), viewOptions{Tag: "containers", Select: "b2"})
	require.NoError(t, err)
	for _, l := range strings.Split(out.String(), "\n") {
		if strings.Contains(l, "db") {
			assert.Contains(t, l, "›")
		}
		if strings.Contains(l, "web") {
			assert.NotContains(t, l, "›")
		}
	}
}

func TestRunViewFailure(t *testing.T) {
	log = testr.New(t)
	srv := testConsole(t)
	srv.Close()

	var out bytes.Buffer
	err := runView(context.Background(), &out, source.NewHTTP(srv.URL), viewOptions{Tag: console.ClusterTag})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cluster")
	assert.Contains(t, out.String(), "0 rows")
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunViewWatch(t *testing.T) {
	log = testr.New(t)
	st := clusterStore(t)
	mgr := manager.New(nil, st)

	out := &lockedBuffer{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runView(ctx, out, mgr, viewOptions{Tag: console.ClusterTag, Watch: true, Interval: 10 * time.Millisecond})
	}()

	require.Eventually(t, func() bool { return strings.Contains(out.String(), "cluster: 3 rows") }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, st.Put(context.Background(), node.Node{ID: uuid.New(), Name: "delta"}))
	require.Eventually(t, func() bool { return strings.Contains(out.String(), "cluster: 4 rows") }, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestViewCommand(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OKVIEW_CONFIG", "")
	srv := testConsole(t)

	tests := []struct {
		name    string
		args    []string
		wantErr string
		want    string
	}{
		{name: "cluster", args: []string{"view", "cluster", "--server", srv.URL, "--sort", "name"}, want: "name ▲"},
		{name: "unknown tag", args: []string{"view", "routers", "--server", srv.URL}, wantErr: "routers"},
		{name: "missing tag", args: []string{"view"}, wantErr: "accepts 1 arg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			rootCmd.SetOut(&out)
			rootCmd.SetErr(&out)
			rootCmd.SetArgs(tt.args)
			err := rootCmd.Execute()
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, out.String(), tt.want)
		})
	}
}
