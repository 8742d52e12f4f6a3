package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baxromumarov/rx"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func lines(s string) []string {
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

func TestRun_Range(t *testing.T) {
	path := writeConfig(t, `
name: tens
source: {kind: range, start: 0, count: 100}
ops:
  - {op: filter, contains: "0"}
  - {op: skip, n: 1}
  - {op: take, n: 3}
`)
	out, err := execute(t, "", "run", "-c", path)
	require.NoError(t, err)
	assert.Equal(t, []string{"10", "20", "30"}, lines(out))
}

func TestRun_Stdin(t *testing.T) {
	path := writeConfig(t, `
source: {kind: stdin}
ops:
  - {op: map, func: trim}
  - {op: exclude, contains: "#"}
  - {op: map, func: upper}
  - {op: distinct}
`)
	out, err := execute(t, " a\n# note\nb \na\nc\n", "run", "-c", path)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, lines(out))
}

func TestRun_CountAndBuffer(t *testing.T) {
	path := writeConfig(t, `
source: {kind: range, start: 1, count: 5}
ops:
  - {op: buffer, n: 2, sep: "+"}
`)
	out, err := execute(t, "", "run", "-c", path)
	require.NoError(t, err)
	assert.Equal(t, []string{"1+2", "3+4", "5"}, lines(out))

	path = writeConfig(t, `
source: {kind: stdin}
ops:
  - {op: count}
`)
	out, err = execute(t, "x\ny\nz\n", "run", "-c", path)
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)
}

func TestRun_JSONOutput(t *testing.T) {
	path := writeConfig(t, `
source: {kind: range, start: 7, count: 2}
`)
	out, err := execute(t, "", "run", "-c", path, "--format", "json")
	require.NoError(t, err)

	got := lines(out)
	require.Len(t, got, 2)
	var first, second outputLine
	require.NoError(t, json.Unmarshal([]byte(got[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(got[1]), &second))

	assert.Equal(t, "7", first.Value)
	assert.Equal(t, 1, first.Seq)
	assert.Equal(t, "8", second.Value)
	assert.Equal(t, 2, second.Seq)
	assert.Equal(t, first.Run, second.Run)
	_, err = uuid.Parse(first.Run)
	assert.NoError(t, err)
}

func TestRun_PipelineFailure(t *testing.T) {
	path := writeConfig(t, `
source: {kind: file, path: /definitely/not/here.txt}
`)
	_, err := execute(t, "", "run", "-c", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), `stage "file"`)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRun_BadConfig(t *testing.T) {
	path := writeConfig(t, "source: {kind: nowhere}\n")
	_, err := execute(t, "", "run", "-c", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRun_MissingConfigFlag(t *testing.T) {
	_, err := execute(t, "", "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config")
}

func TestRun_TimeoutStopsEndlessSource(t *testing.T) {
	path := writeConfig(t, `
source: {kind: interval, period: 5ms}
`)
	out, err := execute(t, "", "run", "-c", path, "--timeout", "60ms")
	require.NoError(t, err)
	assert.NotEmpty(t, out)
	assert.Equal(t, "0", lines(out)[0])
}

func TestValidateCommand(t *testing.T) {
	path := writeConfig(t, `
name: demo
source: {kind: stdin}
ops:
  - {op: first}
  - {op: map, func: len}
`)
	out, err := execute(t, "", "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "ok: demo (source stdin, 2 ops)")
	assert.Contains(t, out, "01-map")

	out, err = execute(t, "", "validate", "--format", "json", path)
	require.NoError(t, err)
	var res validateResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, []string{"00-first", "01-map"}, res.Stages)
}

func TestValidateCommand_Invalid(t *testing.T) {
	path := writeConfig(t, "source: {kind: stdin}\nops: [{op: take, n: -2}]\n")
	_, err := execute(t, "", "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "take requires n >= 0")
}

func TestFailedStages(t *testing.T) {
	assert.Empty(t, failedStages(nil))
	assert.Empty(t, failedStages(errors.New("plain")))

	boom := errors.New("boom")
	joined := errors.Join(
		&rx.StreamError{Stage: "source", Err: boom},
		errors.New("unrelated"),
		fmt.Errorf("wrapped: %w", &rx.StreamError{Stage: "01-op", Err: boom}),
	)
	assert.Equal(t, []string{"source", "01-op"}, failedStages(joined))
}
