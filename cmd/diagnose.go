package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/abhisek/rootcause/internal/app"
	"github.com/abhisek/rootcause/internal/screens/intake"
	"github.com/abhisek/rootcause/internal/skillgraph"
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Run an interactive diagnostic session in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDiagnose(cmd)
	},
}

func addDiagnoseFlags(c *cobra.Command) {
	c.Flags().String("subject", "", "Prefill the learner ID")
	c.Flags().Int("grade", 0, "Prefill the entry grade")
	c.Flags().String("domain", "", "Prefill the domain (strand), e.g. fractions")
	c.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	c.Flags().String("log-file", "", "Write logs to this file (logs are discarded by default while the TUI runs)")
}

func init() {
	addDiagnoseFlags(diagnoseCmd)
}

// runDiagnose opens the store, builds the engine and launches the TUI.
func runDiagnose(cmd *cobra.Command) error {
	logOut := io.Discard
	if p, _ := cmd.Flags().GetString("log-file"); p != "" {
		f, err := os.OpenFile(p, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}

	e, err := setupWithStore(cmd, logOut)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := cmd.Context()
	engine, err := e.storeEngine(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
		stop := serveMetrics(addr, e.logger)
		defer stop()
	}

	subject, _ := cmd.Flags().GetString("subject")
	grade, _ := cmd.Flags().GetInt("grade")
	domain, _ := cmd.Flags().GetString("domain")

	return app.Run(app.Options{
		Engine:  engine,
		Strands: e.graph.Strands(),
		Budget:  e.cfg.Session.ProbeBudget,
		Defaults: intake.Defaults{
			SubjectID: subject,
			Grade:     grade,
			Domain:    skillgraph.Strand(domain),
		},
	})
}

// serveMetrics exposes the default Prometheus registry on addr until the
// returned stop function is called.
func serveMetrics(addr string, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}
