package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(context.Background(), append([]string{"xtailsim"}, args...), &out, &errOut)
	return code, out.String(), errOut.String()
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "xtail.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRatio(t *testing.T) {
	const id = "4bf92f3577b34da6a3ce929d0e0e4736"

	code, out, _ := runCLI(t, "ratio", id, "0.7")
	assert.Equal(t, 0, code)
	assert.Equal(t, "keep\n", out)

	code, out, _ = runCLI(t, "ratio", id, "0.5")
	assert.Equal(t, 0, code)
	assert.Equal(t, "drop\n", out)
}

func TestRatio_UsageErrors(t *testing.T) {
	cases := map[string][]string{
		"missing rate": {"ratio", "4bf92f3577b34da6a3ce929d0e0e4736"},
		"bad id":       {"ratio", "not-hex", "0.5"},
		"bad rate":     {"ratio", "4bf92f3577b34da6a3ce929d0e0e4736", "half"},
		"rate too big": {"ratio", "4bf92f3577b34da6a3ce929d0e0e4736", "1.5"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			code, _, stderr := runCLI(t, args...)
			assert.Equal(t, 2, code)
			assert.Contains(t, stderr, "参数错误")
		})
	}
}

func TestCheck_Defaults(t *testing.T) {
	code, out, _ := runCLI(t, "check")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "policy:             error_or_duration")
	assert.Contains(t, out, "head sampler:       ParentBased")
	assert.Contains(t, out, "tail rate:          = head")
	assert.Contains(t, out, "level threshold:    notice")
	assert.Contains(t, out, "duration threshold: 5s")
	assert.Contains(t, out, "decision cache:     kept=65536 dropped=0")
}

func TestCheck_ConfigFile(t *testing.T) {
	path := writeConfig(t, `
sampling:
  head_key: tenant.id
  head_rate: 0.5
  tail_rate: 0.5
  disable_level: true
  duration_threshold: 2s
decision_cache:
  dropped: 10
`)
	code, out, _ := runCLI(t, "-c", path, "check")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "xsampling.KeyBased{tenant.id,0.5}")
	assert.Contains(t, out, "tail rate:          0.5")
	assert.Contains(t, out, "level threshold:    disabled")
	assert.Contains(t, out, "duration threshold: 2s")
	assert.Contains(t, out, "kept=65536 dropped=10")
}

func TestCheck_InvalidConfig(t *testing.T) {
	path := writeConfig(t, "sampling:\n  policy: sometimes\n")
	code, _, stderr := runCLI(t, "--config", path, "check")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "配置错误")
	assert.Contains(t, stderr, "sometimes")

	code, _, _ = runCLI(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "check")
	assert.Equal(t, 2, code)
}

func TestSimulate(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "every trace has an error",
			args: []string{"--traces", "40", "--spans", "3", "--error-rate", "1", "--slow-rate", "0"},
			want: []string{"traces:         40 (error=40 slow=0)", "kept traces:    40", "exported spans: 120", "pending:        0"},
		},
		{
			name: "every trace is slow",
			args: []string{"--traces", "25", "--spans", "2", "--error-rate", "0", "--slow-rate", "1"},
			want: []string{"kept traces:    25", "exported spans: 50"},
		},
		{
			name: "quiet traffic is dropped",
			args: []string{"--traces", "30", "--error-rate", "0", "--slow-rate", "0", "--workers", "8"},
			want: []string{"kept traces:    0", "exported spans: 0", "metric xtail.trace.decisions{decision=drop,event=end} = 30"},
		},
		{
			name: "single span traces",
			args: []string{"--traces", "10", "--spans", "1", "--error-rate", "1"},
			want: []string{"kept traces:    10", "exported spans: 10"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, out, stderr := runCLI(t, append([]string{"--log-level", "error", "simulate"}, tc.args...)...)
			require.Equal(t, 0, code, stderr)
			for _, w := range tc.want {
				assert.Contains(t, out, w)
			}
			assert.Contains(t, out, "run id:")
		})
	}
}

func TestSimulate_BackgroundFromConfig(t *testing.T) {
	path := writeConfig(t, "sampling:\n  background_rate: 1.0\n")
	code, out, stderr := runCLI(t, "-c", path, "--log-format", "json", "simulate",
		"--traces", "20", "--spans", "2", "--error-rate", "0", "--slow-rate", "0")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "kept traces:    20")
	assert.Contains(t, out, "metric xtail.spans.forwarded{mode=flush} = 20")
}

func TestSimulate_UsageErrors(t *testing.T) {
	cases := map[string][]string{
		"zero workers":      {"simulate", "--workers", "0"},
		"negative traces":   {"simulate", "--traces=-1"},
		"zero spans":        {"simulate", "--spans", "0"},
		"bad error rate":    {"simulate", "--error-rate", "2"},
		"bad slow rate":     {"simulate", "--slow-rate=-0.5"},
		"watch w/o config":  {"simulate", "--watch"},
		"bad log level":     {"--log-level", "loud", "simulate", "--traces", "1"},
		"unknown flag":      {"simulate", "--nope"},
		"non numeric value": {"simulate", "--traces", "many"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			code, _, _ := runCLI(t, args...)
			assert.Equal(t, 2, code)
		})
	}
}

func TestExitError(t *testing.T) {
	err := &exitError{code: 3}
	assert.Equal(t, "exit status 3", err.Error())

	cfgErr := &configError{err: assert.AnError}
	assert.ErrorIs(t, cfgErr, assert.AnError)
}
