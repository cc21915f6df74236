package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/abhisek/rootcause/internal/analyzer"
	"github.com/abhisek/rootcause/internal/config"
	"github.com/abhisek/rootcause/internal/llm"
	"github.com/abhisek/rootcause/internal/profile"
	"github.com/abhisek/rootcause/internal/session"
	"github.com/abhisek/rootcause/internal/skillgraph"
	"github.com/abhisek/rootcause/internal/store"
	"github.com/abhisek/rootcause/internal/telemetry"
)

// env is what a command needs: configuration, a logger, the curriculum
// and, when opened, the store.
type env struct {
	cfg    config.Config
	logger *slog.Logger
	graph  *skillgraph.Graph
	store  *store.Store

	tracerProvider trace.TracerProvider
	stopTracing    func(context.Context) error
}

// loadConfig reads ROOTCAUSE_* variables and applies the persistent flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if v, _ := cmd.Flags().GetString("db"); v != "" {
		cfg.DBPath = v
	}
	if v, _ := cmd.Flags().GetString("curriculum"); v != "" {
		cfg.Curriculum = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if v, _ := cmd.Flags().GetString("trace-file"); v != "" {
		cfg.TraceFile = v
	}
	return cfg, cfg.Validate()
}

// setup loads configuration and the curriculum and starts trace export
// when configured. Logs go to logOut.
func setup(cmd *cobra.Command, logOut io.Writer) (*env, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := cfg.NewLogger(logOut)
	slog.SetDefault(logger)

	g, err := cfg.LoadGraph()
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg, logger: logger, graph: g, tracerProvider: otel.GetTracerProvider()}
	if cfg.TraceFile != "" {
		tp, stop, err := telemetry.Start(cfg.TraceFile, version)
		if err != nil {
			return nil, err
		}
		e.tracerProvider, e.stopTracing = tp, stop
		logger.Debug("exporting spans", "file", cfg.TraceFile)
	}
	return e, nil
}

// setupWithStore is setup plus an open store.
func setupWithStore(cmd *cobra.Command, logOut io.Writer) (*env, error) {
	e, err := setup(cmd, logOut)
	if err != nil {
		return nil, err
	}
	path, err := resolveDBPath(e.cfg)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(path)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}
	e.store = st
	return e, nil
}

// Close flushes pending spans and closes the store.
func (e *env) Close() error {
	var errs []error
	if e.stopTracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		errs = append(errs, e.stopTracing(ctx))
	}
	if e.store != nil {
		errs = append(errs, e.store.Close())
	}
	return errors.Join(errs...)
}

// resolveDBPath returns the configured database path, or the default XDG
// location.
func resolveDBPath(cfg config.Config) (string, error) {
	if cfg.DBPath != "" {
		return cfg.DBPath, store.EnsureDir(cfg.DBPath)
	}
	return store.DefaultDBPath()
}

// classifier builds the LLM-backed classifier, or returns nil when no
// provider is configured.
func (e *env) classifier(ctx context.Context) (analyzer.Classifier, error) {
	var events llm.EventLog
	if e.store != nil {
		events = e.store.Events()
	}
	provider, err := llm.NewProvider(ctx, e.cfg.LLM, events, e.logger)
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, nil
	}
	return analyzer.NewLLMClassifier(provider, analyzer.DefaultLLMClassifierConfig()), nil
}

// engine wires an orchestrator over repo and profiles.
func (e *env) engine(a session.Analyzer, repo session.Repository, profiles profile.Store) *session.Orchestrator {
	return session.New(e.graph, a,
		profile.NewProfiler(e.graph, e.cfg.Profile),
		profiles, repo,
		e.cfg.Session,
		session.WithLogger(e.logger),
		session.WithTracerProvider(e.tracerProvider))
}

// analyzerOptions are the options every analyzer of the process shares.
func (e *env) analyzerOptions(extra ...analyzer.Option) []analyzer.Option {
	return append([]analyzer.Option{
		analyzer.WithLogger(e.logger),
		analyzer.WithTracerProvider(e.tracerProvider),
	}, extra...)
}

// rulesEngine is an orchestrator over the store for commands that never
// classify an answer.
func (e *env) rulesEngine() *session.Orchestrator {
	a := analyzer.New(e.cfg.Analyzer, e.analyzerOptions()...)
	return e.engine(a, e.store.Sessions(), e.store.Profiles())
}

// storeEngine builds the analyzer from configuration and the orchestrator
// over the store. Notices for the user go to notices.
func (e *env) storeEngine(ctx context.Context, notices io.Writer) (*session.Orchestrator, error) {
	c, err := e.classifier(ctx)
	if err != nil {
		return nil, err
	}
	var opts []analyzer.Option
	if c != nil {
		opts = append(opts, analyzer.WithClassifier(c))
	} else {
		e.logger.Warn("no LLM provider configured, classifying by rule only")
		fmt.Fprintln(notices, "No LLM provider configured: only rule-based classification is available.")
	}
	a := analyzer.New(e.cfg.Analyzer, e.analyzerOptions(opts...)...)
	return e.engine(a, e.store.Sessions(), e.store.Profiles()), nil
}
