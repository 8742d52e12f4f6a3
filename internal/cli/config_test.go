package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
name: evens
source:
  kind: range
  start: 1
  count: 10
ops:
  - op: filter
    contains: "2"
  - op: debounce
    duration: 250ms
  - op: buffer
    n: 3
    sep: "|"
`))
	require.NoError(t, err)
	assert.Equal(t, "evens", cfg.Name)
	assert.Equal(t, "range", cfg.Source.Kind)
	assert.Equal(t, 10, cfg.Source.Count)
	require.Len(t, cfg.Ops, 3)
	assert.Equal(t, 250*time.Millisecond, cfg.Ops[1].Duration.Std())
	assert.Equal(t, "|", cfg.Ops[2].Sep)
	assert.Equal(t, []string{"00-filter", "01-debounce", "02-buffer"}, cfg.StageNames())
}

func TestParseConfig_DefaultName(t *testing.T) {
	cfg, err := ParseConfig([]byte("source: {kind: stdin}\n"))
	require.NoError(t, err)
	assert.Equal(t, "pipeline", cfg.Name)
	assert.Empty(t, cfg.Ops)
}

func TestParseConfig_UnknownField(t *testing.T) {
	_, err := ParseConfig([]byte("source: {kind: stdin}\ncolour: blue\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "colour")
}

func TestParseConfig_BadDuration(t *testing.T) {
	_, err := ParseConfig([]byte(`
source: {kind: stdin}
ops:
  - op: sample
    duration: soon
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "soon")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want []string
	}{
		{
			name: "unknown source",
			cfg:  Config{Source: SourceConfig{Kind: "kafka"}},
			want: []string{`invalid kind "kafka"`},
		},
		{
			name: "file without path",
			cfg:  Config{Source: SourceConfig{Kind: "file"}},
			want: []string{"file requires path"},
		},
		{
			name: "tcp without address",
			cfg:  Config{Source: SourceConfig{Kind: "tcp"}},
			want: []string{"tcp requires address"},
		},
		{
			name: "interval without period",
			cfg:  Config{Source: SourceConfig{Kind: "interval"}},
			want: []string{"positive period"},
		},
		{
			name: "every bad op is reported",
			cfg: Config{
				Source: SourceConfig{Kind: "stdin"},
				Ops: []OpConfig{
					{Op: "explode"},
					{Op: "filter"},
					{Op: "map", Func: "reverse"},
					{Op: "buffer"},
					{Op: "take", N: -1},
					{Op: "debounce"},
				},
			},
			want: []string{
				`ops[0]: invalid op "explode"`,
				"ops[1]: filter requires contains",
				`ops[2]: map: invalid func "reverse"`,
				"ops[3]: buffer requires n > 0",
				"ops[4]: take requires n >= 0",
				"ops[5]: debounce requires a positive duration",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			require.Error(t, err)
			for _, w := range tt.want {
				assert.Contains(t, err.Error(), w)
			}
		})
	}
}

func TestValidate_OK(t *testing.T) {
	cfg := Config{
		Source: SourceConfig{Kind: "interval", Period: Duration(time.Second), Count: 5},
		Ops: []OpConfig{
			{Op: "take", N: 0},
			{Op: "delay"},
			{Op: "distinct"},
			{Op: "map", Func: "upper"},
		},
	}
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "none.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
