// Package config assembles process configuration from ROOTCAUSE_*
// environment variables on top of each package's defaults.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/abhisek/rootcause/internal/analyzer"
	"github.com/abhisek/rootcause/internal/llm"
	"github.com/abhisek/rootcause/internal/profile"
	"github.com/abhisek/rootcause/internal/session"
	"github.com/abhisek/rootcause/internal/skillgraph"
)

// Prefix is prepended to every variable name.
const Prefix = "ROOTCAUSE_"

// Config is the full process configuration.
type Config struct {
	LogLevel  string `env:"LOG_LEVEL"`
	LogFormat string `env:"LOG_FORMAT"`

	// DBPath overrides the default XDG database location.
	DBPath string `env:"DB"`

	// Curriculum is a YAML or JSON curriculum file. Empty loads the
	// embedded curriculum.
	Curriculum      string `env:"CURRICULUM"`
	CascadeTieBreak string `env:"CASCADE_TIE_BREAK"`

	// TraceFile receives OpenTelemetry spans as JSON. Empty disables
	// trace export.
	TraceFile string `env:"TRACE_FILE"`

	LLM      llm.Config      `envPrefix:"LLM_"`
	Analyzer analyzer.Config `envPrefix:"ANALYZER_"`
	Session  session.Config  `envPrefix:"SESSION_"`
	Profile  profile.Config  `envPrefix:"PROFILE_"`
}

// Default returns the configuration used when no variables are set.
func Default() Config {
	return Config{
		LogLevel:        "info",
		LogFormat:       "text",
		CascadeTieBreak: skillgraph.TieBreakEntryGrade.String(),
		LLM:             llm.DefaultConfig(),
		Analyzer:        analyzer.DefaultConfig(),
		Session:         session.DefaultConfig(),
		Profile:         profile.DefaultConfig(),
	}
}

// Load reads the process environment.
func Load() (Config, error) {
	return load(env.Options{Prefix: Prefix})
}

// LoadFrom reads vars instead of the process environment. Vendor API key
// discovery still consults the process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	return load(env.Options{Prefix: Prefix, Environment: vars})
}

func load(opts env.Options) (Config, error) {
	cfg := Default()
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.LLM.Discover()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every section and joins the problems.
func (c Config) Validate() error {
	var errs []error
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q (want text or json)", c.LogFormat))
	}
	if _, err := skillgraph.ParseCascadeTieBreak(c.CascadeTieBreak); err != nil {
		errs = append(errs, err)
	}
	if err := c.LLM.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("llm: %w", err))
	}
	if err := c.Analyzer.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("analyzer: %w", err))
	}
	if err := c.Session.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("session: %w", err))
	}
	if err := c.Profile.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("profile: %w", err))
	}
	return errors.Join(errs...)
}

// GraphOptions returns the curriculum load options.
func (c Config) GraphOptions() []skillgraph.Option {
	tb, err := skillgraph.ParseCascadeTieBreak(c.CascadeTieBreak)
	if err != nil {
		tb = skillgraph.TieBreakEntryGrade
	}
	return []skillgraph.Option{skillgraph.WithCascadeTieBreak(tb)}
}

// LoadGraph loads the configured curriculum.
func (c Config) LoadGraph() (*skillgraph.Graph, error) {
	if c.Curriculum == "" {
		return skillgraph.LoadDefault(c.GraphOptions()...)
	}
	return skillgraph.LoadFile(c.Curriculum, c.GraphOptions()...)
}

// NewLogger builds the process logger writing to w.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	hopts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return l, nil
}
