package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/rootcause/internal/session"
	"github.com/abhisek/rootcause/internal/store"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "List and manage diagnostic sessions",
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, most recently active first",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setupWithStore(cmd, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer e.Close()

		var f session.ListFilter
		f.SubjectID, _ = cmd.Flags().GetString("subject")
		status, _ := cmd.Flags().GetString("status")
		f.Status = session.Status(status)
		f.Open, _ = cmd.Flags().GetBool("open")
		f.Limit, _ = cmd.Flags().GetInt("limit")
		if f.Status != "" && !f.Status.Valid() {
			return fmt.Errorf("unknown status %q", status)
		}

		ss, err := e.store.Sessions().List(cmd.Context(), f)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(ss) == 0 {
			fmt.Fprintln(out, "No sessions found.")
			return nil
		}
		fmt.Fprintf(out, "%-36s  %-16s  %-10s  %-16s  %6s  %-19s\n",
			"ID", "Learner", "Status", "Reason", "Probes", "Last activity")
		fmt.Fprintln(out, strings.Repeat("─", 112))
		for _, s := range ss {
			fmt.Fprintf(out, "%-36s  %-16s  %-10s  %-16s  %6d  %-19s\n",
				s.ID, truncate(s.SubjectID, 16), s.Status, orDash(s.Reason), s.ProbeCount,
				s.LastActivity.Local().Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show a session and its probe log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setupWithStore(cmd, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		s, err := e.store.Sessions().Get(ctx, args[0])
		if err != nil {
			return err
		}
		events, err := e.store.Sessions().ProbeEvents(ctx, s.ID, store.QueryOpts{})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Session:   %s\n", s.ID)
		fmt.Fprintf(out, "Learner:   %s (grade %d, %s)\n", s.SubjectID, s.EntryGrade, s.Domain)
		fmt.Fprintf(out, "Status:    %s", s.Status)
		if s.Reason != "" {
			fmt.Fprintf(out, " (%s)", s.Reason)
		}
		fmt.Fprintln(out)
		if s.Origin != "" {
			fmt.Fprintf(out, "Origin:    %s\n", s.Origin)
		}
		if s.Pending != "" {
			fmt.Fprintf(out, "Pending:   %s\n", s.Pending)
		}
		fmt.Fprintf(out, "Running:   %.0f%% confidence over %d probes\n", s.RunningConfidence*100, s.ProbeCount)
		if s.NeedsHumanReview {
			fmt.Fprintln(out, "Review:    needs human review")
		}

		if len(events) == 0 {
			return nil
		}
		fmt.Fprintln(out)
		fmt.Fprintf(out, "%6s  %-8s  %-22s  %-9s  %5s  %-16s  %s\n",
			"Seq", "Time", "Node", "Outcome", "Conf", "Source", "Response")
		fmt.Fprintln(out, strings.Repeat("─", 100))
		for _, ev := range events {
			outcome := ev.Outcome
			if ev.Failed {
				outcome += "!"
			}
			fmt.Fprintf(out, "%6d  %-8s  %-22s  %-9s  %5.2f  %-16s  %s\n",
				ev.Sequence, ev.Timestamp.Local().Format("15:04:05"), ev.NodeCode,
				outcome, ev.Confidence, ev.Source, truncate(ev.RawResponse, 30))
			if ev.MisconceptionID != "" {
				fmt.Fprintf(out, "%6s  misconception: %s\n", "", ev.MisconceptionID)
			}
		}
		return nil
	},
}

var sessionAbandonCmd = &cobra.Command{
	Use:   "abandon <session-id>",
	Short: "Abandon an open session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setupWithStore(cmd, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer e.Close()

		if err := e.rulesEngine().Abandon(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Session %s abandoned.\n", args[0])
		return nil
	},
}

var sessionExpireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Time out open sessions idle longer than the configured TTL",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setupWithStore(cmd, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer e.Close()

		n, err := e.rulesEngine().ExpireStale(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d session(s) timed out.\n", n)
		return nil
	},
}

func init() {
	sessionListCmd.Flags().String("subject", "", "Only sessions of this learner")
	sessionListCmd.Flags().String("status", "", "Only sessions in this status")
	sessionListCmd.Flags().Bool("open", false, "Only open sessions")
	sessionListCmd.Flags().Int("limit", 50, "Maximum number of sessions")

	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionAbandonCmd)
	sessionCmd.AddCommand(sessionExpireCmd)
}
