package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"mandala/cmd/mandala/ui"
	"mandala/internal/config"
	"mandala/internal/document"
	"mandala/internal/grid"
	"mandala/internal/logging"
	"mandala/internal/prompt"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// clearEnv blanks every MANDALA_* override for the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"MANDALA_PROFILE", "MANDALA_PROMPT_ORDER", "MANDALA_EXPORT_FORMAT", "MANDALA_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

// execute runs a fresh root command with a config path that does not exist
// unless the caller passes its own --config.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	clearEnv(t)

	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "config.yaml")}, args...))

	err := cmd.Execute()
	return out.String(), err
}

func positionLines(out string) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "  [") {
			lines = append(lines, line)
		}
	}
	return lines
}

func writeGrid(t *testing.T, dir, name string, g *grid.Grid) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, document.WriteFile(path, g, document.FormatFromPath(path)))
	return path
}

func TestDisplay(t *testing.T) {
	out, err := execute(t)
	require.NoError(t, err)

	assert.Contains(t, out, "Mandala Grid: quan-default (v2.0)")
	assert.Contains(t, out, "Personality Signature: [quan-default] Deconstructor(0.95) > Logic Gate(0.90) > Boundary Sentinel(0.90)")
	assert.Contains(t, out, "Eight Consciousnesses Mapping:")
	assert.NotContains(t, out, "Demo:")
}

func TestDisplay_Demo(t *testing.T) {
	out, err := execute(t, "--demo")
	require.NoError(t, err)

	assert.Contains(t, out, "Demo: Weighted prompt for a sample task")
	assert.Contains(t, out, "Topic: "+demoTopic+"\n")
	assert.Contains(t, out, prompt.HeaderBegin)
}

func TestPrompt_Scenario(t *testing.T) {
	out, err := execute(t, "--prompt", "Should I open-source my AI framework?")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, prompt.HeaderBegin+"\n"))
	assert.Contains(t, out, "Topic: Should I open-source my AI framework?\n")

	lines := positionLines(out)
	require.Len(t, lines, grid.Size)
	assert.True(t, strings.HasPrefix(lines[0], "  [0] Center Observer"))
	assert.True(t, strings.HasPrefix(lines[1], "  [7] Deconstructor (bias=0.95)"))
	assert.True(t, strings.HasPrefix(lines[2], "  [1] Logic Gate (bias=0.90)"))
	assert.True(t, strings.HasPrefix(lines[3], "  [6] Boundary Sentinel (bias=0.90)"))
}

func TestPrompt_Options(t *testing.T) {
	t.Run("no header", func(t *testing.T) {
		out, err := execute(t, "--prompt", "x", "--no-header")
		require.NoError(t, err)
		assert.NotContains(t, out, prompt.HeaderBegin)
		assert.True(t, strings.HasPrefix(out, "You are reasoning"))
	})

	t.Run("body is stable across runs", func(t *testing.T) {
		a, err := execute(t, "--prompt", "x", "--no-header")
		require.NoError(t, err)
		b, err := execute(t, "--prompt", "x", "--no-header")
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("empty topic", func(t *testing.T) {
		out, err := execute(t, "--prompt", "")
		require.NoError(t, err)
		assert.Contains(t, out, "Topic: "+prompt.NoTopic+"\n")
		assert.Len(t, positionLines(out), grid.Size)
	})

	t.Run("grid order", func(t *testing.T) {
		out, err := execute(t, "--prompt", "x", "--order", "grid")
		require.NoError(t, err)
		lines := positionLines(out)
		require.Len(t, lines, grid.Size)
		assert.True(t, strings.HasPrefix(lines[0], "  [1] "))
		assert.True(t, strings.HasPrefix(lines[4], "  [0] "))
	})

	t.Run("unknown order prints nothing", func(t *testing.T) {
		out, err := execute(t, "--prompt", "x", "--order", "random")
		require.Error(t, err)
		assert.Empty(t, out)
		assert.Equal(t, exitFailure, exitCode(err))
	})
}

func TestExport_ReimportIsByteIdentical(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.json")
	second := filepath.Join(dir, "second.json")

	out, err := execute(t, "--export", first)
	require.NoError(t, err)
	assert.Equal(t, "Exported grid to "+first+"\n", out)

	_, err = execute(t, "--profile", first, "--export", second)
	require.NoError(t, err)

	a, err := os.ReadFile(first)
	require.NoError(t, err)
	b, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
	assert.True(t, strings.HasPrefix(string(a), "{\n  \"mandala_grid\": {"))
}

func TestExport_Formats(t *testing.T) {
	dir := t.TempDir()
	yamlConfig := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(yamlConfig, []byte("export:\n  format: yaml\n"), 0644))

	tests := []struct {
		name   string
		file   string
		args   []string
		prefix string
	}{
		{"yaml by extension", "grid.yaml", nil, "mandala_grid:\n"},
		{"flag beats extension", "grid.out", []string{"--format", "yaml"}, "mandala_grid:\n"},
		{"config format for unknown extension", "grid.txt", []string{"--config", yamlConfig}, "mandala_grid:\n"},
		{"config format without extension", "grid", []string{"--config", yamlConfig}, "mandala_grid:\n"},
		{"json flag for unknown extension", "grid.dat", []string{"--format", "json"}, "{\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			_, err := execute(t, append([]string{"--export", path}, tt.args...)...)
			require.NoError(t, err)
			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(string(data), tt.prefix))

			// the exported document loads back whatever its extension
			out, err := execute(t, "--profile", path)
			require.NoError(t, err)
			assert.Contains(t, out, "Mandala Grid: quan-default (v2.0)")

			again := filepath.Join(dir, "again-"+tt.file)
			_, err = execute(t, append([]string{"--profile", path, "--export", again}, tt.args...)...)
			require.NoError(t, err)
			reexported, err := os.ReadFile(again)
			require.NoError(t, err)
			assert.Equal(t, string(data), string(reexported))
		})
	}
}

func TestExport_Name(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "renamed.json")

	_, err := execute(t, "--export", path, "--name", "skeptic")
	require.NoError(t, err)

	out, err := execute(t, "--profile", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Mandala Grid: skeptic (v2.0)")

	_, err = execute(t, "--name", "orphan")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--name")
}

func TestExport_UnwritablePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "dir", "grid.json")

	out, err := execute(t, "--export", path)
	require.Error(t, err)
	assert.Empty(t, out)
	assert.True(t, errors.Is(err, grid.ErrIOFailure))
	assert.Equal(t, exitIOFailure, exitCode(err))

	var stderr bytes.Buffer
	reportError(&stderr, err)
	assert.True(t, strings.HasPrefix(stderr.String(), "io_failure: "))
}

func TestCompare(t *testing.T) {
	dir := t.TempDir()
	base := writeGrid(t, dir, "base.json", grid.Default())
	lowered, err := grid.Default().WithBias(7, 0.70)
	require.NoError(t, err)
	variant := writeGrid(t, dir, "variant.yaml", lowered.WithName("variant"))

	t.Run("lowered deconstructor", func(t *testing.T) {
		out, err := execute(t, "--compare", base, variant)
		require.NoError(t, err)
		assert.Contains(t, out, "Comparing [quan-default] vs [variant]")
		assert.Contains(t, out, "-0.25")
		assert.Contains(t, out, "Verdict: divergent")
	})

	t.Run("same document is aligned", func(t *testing.T) {
		out, err := execute(t, "--compare", base, base)
		require.NoError(t, err)
		assert.Contains(t, out, "Verdict: aligned")
	})

	t.Run("malformed document", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{"mandala_grid": {"version": "2.0"`), 0644))

		out, err := execute(t, "--compare", base, bad)
		require.Error(t, err)
		assert.Empty(t, out)
		assert.True(t, errors.Is(err, grid.ErrMalformedDocument))
		assert.Equal(t, exitMalformedDocument, exitCode(err))

		var stderr bytes.Buffer
		reportError(&stderr, err)
		assert.True(t, strings.HasPrefix(stderr.String(), "malformed_document: "+bad))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := execute(t, "--compare", base, filepath.Join(dir, "nope.json"))
		assert.Equal(t, exitIOFailure, exitCode(err))
	})

	t.Run("needs two arguments", func(t *testing.T) {
		_, err := execute(t, "--compare", base)
		require.Error(t, err)
		assert.Equal(t, exitFailure, exitCode(err))
	})
}

func TestProfile_InvalidBias(t *testing.T) {
	dir := t.TempDir()
	path := writeGrid(t, dir, "grid.json", grid.Default())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data = bytes.Replace(data, []byte(`"bias": 0.95`), []byte(`"bias": 1.5`), 1)
	require.NoError(t, os.WriteFile(path, data, 0644))

	out, err := execute(t, "--profile", path)
	require.Error(t, err)
	assert.Empty(t, out)
	assert.Equal(t, exitInvalidGrid, exitCode(err))
}

func TestMirror(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		out, err := execute(t, "--mirror")
		require.NoError(t, err)
		assert.Contains(t, out, "Comparing [quan-default] vs [quan-default]")
		assert.Contains(t, out, "Verdict: aligned")
		assert.Contains(t, out, "Mirror Analysis")
		assert.Contains(t, out, "⬆ Deconstructor")
	})

	t.Run("profile against baseline", func(t *testing.T) {
		g, err := grid.Default().WithBias(2, 0.40)
		require.NoError(t, err)
		path := writeGrid(t, t.TempDir(), "p.json", g.WithName("doubter"))

		out, err := execute(t, "--profile", path, "--mirror")
		require.NoError(t, err)
		assert.Contains(t, out, "Comparing [doubter] vs [quan-default]")
		assert.Contains(t, out, "+0.40")
	})
}

func TestMirror_Logging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logging.SetBase(zap.New(core), config.LoggingConfig{})
	t.Cleanup(func() { logging.SetBase(nil, config.LoggingConfig{}) })

	cfg = config.DefaultConfig()
	g, err := loadGrid("")
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, runMirror(&buf, ui.StylesFor(&buf), g))

	loaded := logs.FilterMessage("using built-in grid").All()
	require.Len(t, loaded, 1)
	assert.Equal(t, string(logging.CategoryGrid), loaded[0].LoggerName)
	assert.Equal(t, g.Signature(), loaded[0].ContextMap()["signature"])

	compared := logs.FilterMessage("grids compared").All()
	require.Len(t, compared, 1)
	assert.Equal(t, grid.DefaultName, compared[0].ContextMap()["b"])
	assert.Equal(t, "aligned", compared[0].ContextMap()["verdict"])
	assert.Len(t, logs.FilterMessage("self-mirror completed").All(), 1)
}

func TestModeFlagsAreExclusive(t *testing.T) {
	pairs := [][]string{
		{"--mirror", "--prompt", "x"},
		{"--mirror", "--export", "out.json"},
		{"--prompt", "x", "--compare", "a", "b"},
	}
	for _, args := range pairs {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			out, err := execute(t, args...)
			require.Error(t, err)
			assert.Empty(t, out)
			assert.Contains(t, err.Error(), "none of the others")
		})
	}
}

func TestPositionalArgsRequireCompare(t *testing.T) {
	_, err := execute(t, "stray")
	require.Error(t, err)
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	profile := writeGrid(t, dir, "profile.json", grid.Default().WithName("configured"))
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(fmt.Sprintf(
		"profile: %s\nprompt:\n  order: index\n  header: false\n", profile)), 0644))

	t.Run("profile order and header", func(t *testing.T) {
		out, err := execute(t, "--config", cfgPath, "--prompt", "x")
		require.NoError(t, err)
		assert.NotContains(t, out, prompt.HeaderBegin)
		assert.Contains(t, out, "Grid: configured (v2.0)")
		lines := positionLines(out)
		require.Len(t, lines, grid.Size)
		for i, l := range lines {
			assert.True(t, strings.HasPrefix(l, fmt.Sprintf("  [%d] ", i)), l)
		}
	})

	t.Run("flags beat config", func(t *testing.T) {
		out, err := execute(t, "--config", cfgPath, "--prompt", "x", "--order", "center-bias", "--profile", writeGrid(t, dir, "other.json", grid.Default()))
		require.NoError(t, err)
		assert.Contains(t, out, "Grid: quan-default (v2.0)")
		assert.True(t, strings.HasPrefix(positionLines(out)[1], "  [7] "))
	})

	t.Run("invalid config", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(bad, []byte("prompt:\n  order: sideways\n"), 0644))
		_, err := execute(t, "--config", bad)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "prompt.order")
	})
}

func TestInitConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "nested", "config.yaml")

	out, err := execute(t, "--config", cfgPath, "--init-config")
	require.NoError(t, err)
	assert.Equal(t, "Wrote config to "+cfgPath+"\n", out)

	saved, err := config.Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig(), saved)

	// an existing file is rewritten with the effective values
	require.NoError(t, os.WriteFile(cfgPath, []byte("prompt:\n  order: index\n"), 0644))
	_, err = execute(t, "--config", cfgPath, "--init-config")
	require.NoError(t, err)
	data, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "order: index")
	assert.Contains(t, string(data), "format: json")

	_, err = execute(t, "--init-config", "--mirror")
	require.Error(t, err)
}

func TestEnvOverride(t *testing.T) {
	clearEnv(t)

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "c.yaml"), "--prompt", "x"})
	t.Setenv("MANDALA_PROMPT_ORDER", "grid")

	require.NoError(t, cmd.Execute())
	assert.True(t, strings.HasPrefix(positionLines(out.String())[0], "  [1] "))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, exitOK},
		{errors.New("boom"), exitFailure},
		{grid.Errorf(grid.KindInvalidGrid, "x"), exitInvalidGrid},
		{grid.Errorf(grid.KindMalformedDocument, "x"), exitMalformedDocument},
		{grid.Errorf(grid.KindIncompatibleGrids, "x"), exitIncompatibleGrids},
		{grid.Errorf(grid.KindIOFailure, "x"), exitIOFailure},
		{grid.Errorf(grid.KindNotFound, "x"), exitFailure},
		{fmt.Errorf("wrapped: %w", grid.Errorf(grid.KindIOFailure, "x")), exitIOFailure},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, exitCode(tt.err), "%v", tt.err)
	}
}

func TestReportError(t *testing.T) {
	var buf bytes.Buffer
	reportError(&buf, grid.Errorf(grid.KindIncompatibleGrids, "index sets differ"))
	assert.Equal(t, "incompatible_grids: index sets differ\n", buf.String())

	buf.Reset()
	reportError(&buf, errors.New("unknown flag: --nope"))
	assert.Equal(t, "error: unknown flag: --nope\n", buf.String())
}
