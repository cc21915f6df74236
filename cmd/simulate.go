package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/abhisek/rootcause/internal/analyzer"
	"github.com/abhisek/rootcause/internal/profile"
	"github.com/abhisek/rootcause/internal/session"
	"github.com/abhisek/rootcause/internal/skillgraph"
)

// simLearner scripts one simulated learner: every node is mastered unless
// listed as a gap or uncertain.
type simLearner struct {
	Subject    string   `yaml:"subject" json:"subject"`
	Grade      int      `yaml:"grade" json:"grade"`
	Domain     string   `yaml:"domain" json:"domain"`
	Confidence float64  `yaml:"confidence" json:"confidence"`
	Gaps       []string `yaml:"gaps" json:"gaps"`
	Uncertain  []string `yaml:"uncertain" json:"uncertain"`
}

type simScript struct {
	Learners []simLearner `yaml:"learners"`
}

// simOutcome is the result of one simulated session.
type simOutcome struct {
	Learner simLearner          `json:"learner"`
	Session string              `json:"session_id"`
	Profile *profile.GapProfile `json:"profile,omitempty"`
	Error   string              `json:"error,omitempty"`
}

var simulateCmd = &cobra.Command{
	Use:   "simulate [script.yaml]",
	Short: "Run diagnostic sessions against scripted learners",
	Long: `Runs complete diagnostic sessions without a human in the loop.
Each learner answers every probe; the outcome of each node comes from the
script rather than from response analysis. Learners run concurrently.

Script format:

  learners:
    - subject: ana
      grade: 2
      domain: addition-and-subtraction
      confidence: 0.9
      gaps: [1.NBT.tens]
      uncertain: []`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		learners, err := simLearners(cmd, args)
		if err != nil {
			return err
		}

		persist, _ := cmd.Flags().GetBool("persist")
		var e *env
		if persist {
			e, err = setupWithStore(cmd, cmd.ErrOrStderr())
		} else {
			e, err = setup(cmd, cmd.ErrOrStderr())
		}
		if err != nil {
			return err
		}
		defer e.Close()

		for i, l := range learners {
			if err := validateLearner(e.graph, l); err != nil {
				return fmt.Errorf("learner %d: %w", i+1, err)
			}
		}

		// One shared repository so that concurrent learners exercise the
		// same storage, as they would in a service.
		var (
			repo     session.Repository = session.NewMemoryRepository()
			profiles profile.Store      = profile.NewMemoryStore()
		)
		if persist {
			repo, profiles = e.store.Sessions(), e.store.Profiles()
		}

		parallel, _ := cmd.Flags().GetInt("parallel")
		results := make([]simOutcome, len(learners))
		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(max(parallel, 1))
		for i, l := range learners {
			g.Go(func() error {
				results[i] = simulate(ctx, e, repo, profiles, l)
				return ctx.Err()
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(cmd.OutOrStdout(), results)
		}
		printSimTable(cmd.OutOrStdout(), results)
		return nil
	},
}

// simulate runs one learner's session to its end.
func simulate(ctx context.Context, e *env, repo session.Repository, profiles profile.Store, l simLearner) simOutcome {
	out := simOutcome{Learner: l}

	outcomes := make(map[string]analyzer.Outcome, e.graph.Len())
	for _, n := range e.graph.Nodes() {
		outcomes[n.Code] = analyzer.Mastered
	}
	for _, c := range l.Uncertain {
		outcomes[c] = analyzer.Uncertain
	}
	for _, c := range l.Gaps {
		outcomes[c] = analyzer.Gap
	}
	a := analyzer.New(e.cfg.Analyzer, e.analyzerOptions(
		analyzer.WithRules(),
		analyzer.WithClassifier(analyzer.NewScriptedClassifier(outcomes, l.Confidence)))...)
	orch := e.engine(a, repo, profiles)

	id, err := orch.CreateSession(ctx, l.Subject, l.Grade, skillgraph.Strand(l.Domain))
	if err != nil {
		out.Error = err.Error()
		return out
	}
	out.Session = id

	for {
		p, err := orch.CurrentProbe(ctx, id)
		if errors.Is(err, session.ErrSessionClosed) {
			break
		}
		if err != nil {
			out.Error = err.Error()
			return out
		}
		res, err := orch.SubmitResponse(ctx, id, p.NodeCode, "simulated", uuid.NewString())
		if err != nil {
			out.Error = err.Error()
			return out
		}
		if res.Profile != nil {
			out.Profile = res.Profile
			return out
		}
	}

	// Closed without a profile in hand (e.g. timed out): fetch whatever was
	// stored.
	if gp, err := orch.GetProfile(ctx, id); err == nil {
		out.Profile = gp
	} else {
		out.Error = err.Error()
	}
	return out
}

// simLearners reads learners from the script argument, or builds them from
// flags.
func simLearners(cmd *cobra.Command, args []string) ([]simLearner, error) {
	if len(args) == 1 {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return nil, fmt.Errorf("read script: %w", err)
		}
		var s simScript
		if err := yaml.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("parse script %s: %w", args[0], err)
		}
		if len(s.Learners) == 0 {
			return nil, fmt.Errorf("script %s has no learners", args[0])
		}
		for i := range s.Learners {
			if s.Learners[i].Confidence == 0 {
				s.Learners[i].Confidence = 0.9
			}
			if s.Learners[i].Subject == "" {
				s.Learners[i].Subject = fmt.Sprintf("sim-%d", i+1)
			}
		}
		return s.Learners, nil
	}

	base := simLearner{}
	base.Subject, _ = cmd.Flags().GetString("subject")
	base.Grade, _ = cmd.Flags().GetInt("grade")
	base.Domain, _ = cmd.Flags().GetString("domain")
	base.Confidence, _ = cmd.Flags().GetFloat64("confidence")
	base.Gaps, _ = cmd.Flags().GetStringSlice("gap")
	base.Uncertain, _ = cmd.Flags().GetStringSlice("uncertain")
	count, _ := cmd.Flags().GetInt("count")
	if count < 1 {
		return nil, fmt.Errorf("--count must be at least 1, got %d", count)
	}
	if base.Domain == "" {
		return nil, errors.New("--domain is required without a script")
	}

	out := make([]simLearner, count)
	for i := range out {
		out[i] = base
		if count > 1 {
			out[i].Subject = fmt.Sprintf("%s-%d", base.Subject, i+1)
		}
	}
	return out, nil
}

func validateLearner(g *skillgraph.Graph, l simLearner) error {
	if l.Confidence <= 0 || l.Confidence > 1 {
		return fmt.Errorf("confidence must be in (0, 1], got %v", l.Confidence)
	}
	for _, c := range append(append([]string(nil), l.Gaps...), l.Uncertain...) {
		if !g.Has(c) {
			return fmt.Errorf("unknown node %q", c)
		}
	}
	return nil
}

func printSimTable(w io.Writer, results []simOutcome) {
	fmt.Fprintf(w, "%-16s  %-16s  %-18s  %-18s  %6s  %5s  %s\n",
		"Learner", "Reason", "Root gap", "Focus", "Probes", "Conf", "Trace")
	fmt.Fprintln(w, strings.Repeat("─", 110))
	for _, r := range results {
		if r.Error != "" {
			fmt.Fprintf(w, "%-16s  error: %s\n", truncate(r.Learner.Subject, 16), r.Error)
			continue
		}
		p := r.Profile
		conf := fmt.Sprintf("%.2f", p.OverallConfidence)
		if p.NeedsHumanReview {
			conf += "?"
		}
		fmt.Fprintf(w, "%-16s  %-16s  %-18s  %-18s  %6d  %5s  %s\n",
			truncate(r.Learner.Subject, 16), p.Reason, orDash(p.PrimaryGapNode),
			orDash(p.RecommendedFocusNode), p.ProbeCount, conf, strings.Join(p.TracePath, " → "))
	}
}

func init() {
	simulateCmd.Flags().String("subject", "sim", "Learner ID (suffixed with -N when --count > 1)")
	simulateCmd.Flags().Int("grade", 3, "Entry grade")
	simulateCmd.Flags().String("domain", "", "Domain (strand) to screen")
	simulateCmd.Flags().StringSlice("gap", nil, "Node codes the learner has not mastered")
	simulateCmd.Flags().StringSlice("uncertain", nil, "Node codes the learner answers ambiguously")
	simulateCmd.Flags().Float64("confidence", 0.9, "Confidence of every scripted classification")
	simulateCmd.Flags().Int("count", 1, "Number of identical learners to run")
	simulateCmd.Flags().Int("parallel", 4, "Maximum concurrent sessions")
	simulateCmd.Flags().Bool("persist", false, "Store sessions and profiles in the database")
	simulateCmd.Flags().Bool("json", false, "Print results as JSON")
}
