package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lines(buf *bytes.Buffer) []map[string]any {
	var out []map[string]any
	for _, l := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if l == "" {
			continue
		}
		m := map[string]any{}
		if err := json.Unmarshal([]byte(l), &m); err == nil {
			out = append(out, m)
		}
	}
	return out
}

func TestNewLevels(t *testing.T) {
	tests := []struct {
		level string
		want  []string
	}{
		{level: "debug", want: []string{"debug line", "info line", "error line"}},
		{level: "info", want: []string{"info line", "error line"}},
		{level: "", want: []string{"info line", "error line"}},
		{level: "error", want: []string{"error line"}},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			log, err := New(Options{Level: tt.level, Out: &buf})
			require.NoError(t, err)

			log.V(1).Info("debug line")
			log.Info("info line", "tag", "cluster")
			log.Error(errors.New("boom"), "error line")

			var got []string
			for _, l := range lines(&buf) {
				got = append(got, l["msg"].(string))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewFields(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Out: &buf})
	require.NoError(t, err)
	log.WithName("binding").Error(errors.New("boom"), "Table fetch failed", "tag", "cluster")

	l := lines(&buf)
	require.Len(t, l, 1)
	assert.Equal(t, "binding", l[0]["logger"])
	assert.Equal(t, "cluster", l[0]["tag"])
	assert.Equal(t, "boom", l[0]["error"])
	assert.Equal(t, "error", l[0]["level"])
}

func TestNewDevelopment(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Development: true, Out: &buf})
	require.NoError(t, err)
	log.Info("cluster view created")
	assert.Contains(t, buf.String(), "cluster view created")
	assert.Contains(t, buf.String(), "INFO")
}

func TestNewBadLevel(t *testing.T) {
	_, err := New(Options{Level: "verbose"})
	assert.ErrorContains(t, err, "verbose")
}
