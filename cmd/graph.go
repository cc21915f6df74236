package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/rootcause/internal/skillgraph"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Inspect and validate the curriculum graph",
}

var graphValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a curriculum file (default: the configured curriculum)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			cmd.Flags().Set("curriculum", args[0])
		}
		out := cmd.OutOrStdout()

		e, err := setup(cmd, cmd.ErrOrStderr())
		var verr *skillgraph.GraphValidationError
		if errors.As(err, &verr) {
			fmt.Fprintf(out, "%d problem(s):\n", len(verr.Problems))
			for _, p := range verr.Problems {
				fmt.Fprintf(out, "  %s\n", p)
			}
			return fmt.Errorf("curriculum is invalid")
		}
		if err != nil {
			return err
		}

		g := e.graph
		fmt.Fprintf(out, "OK  version %s: %d nodes, %d strands, %d cascades\n",
			orDash(g.Version()), g.Len(), len(g.Strands()), len(g.Cascades()))
		return nil
	},
}

var graphListCmd = &cobra.Command{
	Use:   "list",
	Short: "List nodes (optionally filtered by strand or grade)",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		strand, _ := cmd.Flags().GetString("strand")
		grade, _ := cmd.Flags().GetInt("grade")

		var nodes []skillgraph.Node
		switch {
		case strand != "" && cmd.Flags().Changed("grade"):
			return fmt.Errorf("use --strand or --grade, not both")
		case strand != "":
			nodes = e.graph.ByStrand(skillgraph.Strand(strand))
		case cmd.Flags().Changed("grade"):
			nodes = e.graph.ByGrade(grade)
		default:
			nodes = e.graph.Nodes()
		}
		if len(nodes) == 0 {
			return fmt.Errorf("no nodes match")
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-22s  %-40s  %5s  %-26s  %3s\n", "Code", "Name", "Grade", "Strand", "Sev")
		fmt.Fprintln(out, strings.Repeat("─", 104))
		for _, n := range nodes {
			mark := " "
			if n.Priority {
				mark = "*"
			}
			fmt.Fprintf(out, "%-22s  %-40s  %5d  %-26s  %3d %s\n",
				n.Code, truncate(n.Name, 40), n.GradeLevel,
				skillgraph.StrandDisplayName(n.Strand), n.Severity, mark)
		}
		fmt.Fprintf(out, "\n%d nodes (* = priority screening)\n", len(nodes))
		return nil
	},
}

var graphTraceCmd = &cobra.Command{
	Use:   "trace <code>",
	Short: "Show the backward prerequisite trace from a node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		if _, err := e.graph.Node(args[0]); err != nil {
			return err
		}
		depth, _ := cmd.Flags().GetInt("depth")

		out := cmd.OutOrStdout()
		steps := e.graph.TraceDepths(args[0], depth)
		if len(steps) == 0 {
			fmt.Fprintf(out, "%s is a root: it has no prerequisites.\n", args[0])
			return nil
		}
		fmt.Fprintln(out, args[0])
		for _, s := range steps {
			fmt.Fprintf(out, "%s%s  (via %s)\n", strings.Repeat("  ", s.Depth), s.Code, s.Via)
		}
		return nil
	},
}

var graphImpactCmd = &cobra.Command{
	Use:   "impact <code>",
	Short: "List every node that depends on a node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		if _, err := e.graph.Node(args[0]); err != nil {
			return err
		}
		printCodes(cmd.OutOrStdout(), e.graph, e.graph.ForwardImpact(args[0]))
		return nil
	},
}

var graphCascadeCmd = &cobra.Command{
	Use:   "cascade <code>...",
	Short: "Match gap nodes against the known cascades",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		gaps := make(map[string]bool, len(args))
		for _, code := range args {
			if !e.graph.Has(code) {
				return fmt.Errorf("unknown node %q", code)
			}
			gaps[code] = true
		}

		out := cmd.OutOrStdout()
		m, ok := e.graph.FindCascadePath(gaps)
		if !ok {
			fmt.Fprintln(out, "No cascade matches.")
			return nil
		}
		fmt.Fprintf(out, "%s  %s  (overlap %d)\n", m.ID, m.Name, m.Overlap)
		for _, code := range m.Nodes {
			mark := " "
			if gaps[code] {
				mark = "*"
			}
			fmt.Fprintf(out, "  %s %s\n", mark, code)
		}
		return nil
	},
}

var graphScreeningCmd = &cobra.Command{
	Use:   "screening",
	Short: "Show the screening probe order for a grade and domain",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		grade, _ := cmd.Flags().GetInt("grade")
		domain, _ := cmd.Flags().GetString("domain")

		order := e.graph.PriorityScreeningOrder(grade, skillgraph.Strand(domain))
		if len(order) == 0 {
			return fmt.Errorf("no screening probes for grade %d in %q", grade, domain)
		}
		printCodes(cmd.OutOrStdout(), e.graph, order)
		return nil
	},
}

func printCodes(w io.Writer, g *skillgraph.Graph, codes []string) {
	for i, code := range codes {
		n, _ := g.Node(code)
		fmt.Fprintf(w, "%3d  %-22s  %s (grade %d)\n", i+1, code, n.Name, n.GradeLevel)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	graphListCmd.Flags().String("strand", "", "Filter by strand (e.g. fractions)")
	graphListCmd.Flags().Int("grade", 0, "Filter by grade level")
	graphTraceCmd.Flags().Int("depth", skillgraph.DefaultTraceDepth, "Maximum trace depth")
	graphScreeningCmd.Flags().Int("grade", 3, "Entry grade")
	graphScreeningCmd.Flags().String("domain", string(skillgraph.StrandFractions), "Domain (strand)")

	graphCmd.AddCommand(graphValidateCmd)
	graphCmd.AddCommand(graphListCmd)
	graphCmd.AddCommand(graphTraceCmd)
	graphCmd.AddCommand(graphImpactCmd)
	graphCmd.AddCommand(graphCascadeCmd)
	graphCmd.AddCommand(graphScreeningCmd)
}
