package log

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseConfig(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		wantRules string
		wantErr   bool
	}{
		{
			name:      "no filters",
			data:      "defaultLevel: debug\n",
			wantRules: "*:*",
		},
		{
			name:      "multiple filters",
			data:      "filters:\n  - \"debug:grid.*\"\n  - \"info:*\"\n",
			wantRules: "debug:grid.* info:*",
		},
		{
			name:    "invalid yaml",
			data:    "filters: [",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseConfig([]byte(tt.data))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantRules, cfg.Rules())
		})
	}
}

func TestLoggerWithFilter(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(buf, DebugLevel)
	filtered, err := l.WithFilter("debug:grid.* info:*")
	assert.NoError(t, err)

	filtered.Named("grid.store").Debug("kept")
	filtered.Named("collaborator").Debug("dropped")
	filtered.Named("collaborator").Info("kept too")

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "\n"))
	assert.Contains(t, out, "kept too")
	assert.NotContains(t, out, "dropped")
}

func TestGetFromContext(t *testing.T) {
	l := New(&bytes.Buffer{}, InfoLevel).Named("ctx")
	ctx := AddToContext(t.Context(), l)
	assert.Same(t, l, GetFromContext(ctx))
	assert.Same(t, Default(), GetFromContext(t.Context()))
}
