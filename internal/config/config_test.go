package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/rootcause/internal/session"
)

func clearVendorKeys(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GEMINI_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "OPENROUTER_API_KEY"} {
		t.Setenv(k, "")
	}
}

func TestLoadFrom_Defaults(t *testing.T) {
	clearVendorKeys(t)

	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "none", cfg.LLM.Provider)
	assert.Equal(t, session.DefaultConfig(), cfg.Session)
}

func TestLoadFrom_Overrides(t *testing.T) {
	clearVendorKeys(t)

	cfg, err := LoadFrom(map[string]string{
		"ROOTCAUSE_LOG_LEVEL":                        "debug",
		"ROOTCAUSE_DB":                               "/tmp/rc.db",
		"ROOTCAUSE_CASCADE_TIE_BREAK":                "id",
		"ROOTCAUSE_LLM_PROVIDER":                     "anthropic",
		"ROOTCAUSE_LLM_ANTHROPIC_API_KEY":            "sk-test",
		"ROOTCAUSE_LLM_RETRY_MAX_ATTEMPTS":           "5",
		"ROOTCAUSE_ANALYZER_TIMEOUT":                 "5s",
		"ROOTCAUSE_SESSION_PROBE_BUDGET":             "12",
		"ROOTCAUSE_SESSION_IDLE_TTL":                 "10m",
		"ROOTCAUSE_PROFILE_FALLBACK_PENALTY":         "0.2",
		"ROOTCAUSE_PROFILE_FALLBACK_STEP_CONFIDENCE": "0.4",
	})
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/tmp/rc.db", cfg.DBPath)
	assert.Equal(t, "id", cfg.CascadeTieBreak)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "sk-test", cfg.LLM.Anthropic.APIKey)
	assert.Equal(t, "claude-haiku", cfg.LLM.Anthropic.Model, "unset fields keep defaults")
	assert.Equal(t, 5, cfg.LLM.Retry.MaxAttempts)
	assert.Equal(t, 5*time.Second, cfg.Analyzer.Timeout)
	assert.Equal(t, 12, cfg.Session.ProbeBudget)
	assert.Equal(t, 4, cfg.Session.MaxDepth)
	assert.Equal(t, 10*time.Minute, cfg.Session.IdleTTL)
	assert.InDelta(t, 0.2, cfg.Profile.FallbackPenalty, 1e-9)
	assert.InDelta(t, 0.4, cfg.Profile.FallbackStepConfidence, 1e-9)
}

func TestLoadFrom_DiscoversVendorKey(t *testing.T) {
	clearVendorKeys(t)
	t.Setenv("OPENAI_API_KEY", "sk-openai")

	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "sk-openai", cfg.LLM.OpenAI.APIKey)
}

func TestLoadFrom_Invalid(t *testing.T) {
	clearVendorKeys(t)

	tests := []struct {
		name string
		vars map[string]string
		want string
	}{
		{"bad level", map[string]string{"ROOTCAUSE_LOG_LEVEL": "loud"}, "log level"},
		{"bad format", map[string]string{"ROOTCAUSE_LOG_FORMAT": "xml"}, "log format"},
		{"bad tie-break", map[string]string{"ROOTCAUSE_CASCADE_TIE_BREAK": "random"}, "tie-break"},
		{"budget out of range", map[string]string{"ROOTCAUSE_SESSION_PROBE_BUDGET": "30"}, "session: probe budget"},
		{"missing key", map[string]string{"ROOTCAUSE_LLM_PROVIDER": "gemini"}, "GEMINI_API_KEY"},
		{"unparsable duration", map[string]string{"ROOTCAUSE_ANALYZER_TIMEOUT": "soon"}, "parse env"},
		{"negative penalty", map[string]string{"ROOTCAUSE_PROFILE_FALLBACK_PENALTY": "-1"}, "profile: fallback penalty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(tt.vars)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Default()
	cfg.LogLevel = "warn"

	logger := cfg.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "session", "s1")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=shown")
	assert.Contains(t, out, "session=s1")

	buf.Reset()
	cfg.LogFormat = "json"
	cfg.NewLogger(&buf).Warn("shown")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}

func TestLoadGraph(t *testing.T) {
	cfg := Default()
	g, err := cfg.LoadGraph()
	require.NoError(t, err)
	assert.True(t, g.Has("K.CC.count"))

	cfg.Curriculum = "/nonexistent/curriculum.yaml"
	_, err = cfg.LoadGraph()
	assert.Error(t, err)
}
