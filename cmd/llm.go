package cmd

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/rootcause/internal/store"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect logged LLM classification requests",
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent LLM requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		purpose, _ := cmd.Flags().GetString("purpose")

		e, err := setupWithStore(cmd, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer e.Close()

		// Purpose filtering happens after the query, so fetch everything
		// when a purpose is given.
		opts := store.QueryOpts{Limit: limit}
		if purpose != "" {
			opts.Limit = 0
		}
		events, err := e.store.Events().LLMRequests(cmd.Context(), opts)
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}

		out := cmd.OutOrStdout()
		shown := 0
		for _, ev := range events {
			if purpose != "" && ev.Purpose != purpose {
				continue
			}
			if limit > 0 && shown == limit {
				break
			}
			if shown == 0 {
				fmt.Fprintf(out, "%-6s  %-19s  %-14s  %-28s  %-6s  %-6s  %-7s  %s\n",
					"Seq", "Timestamp", "Purpose", "Model", "In", "Out", "Ms", "OK")
				fmt.Fprintln(out, strings.Repeat("─", 100))
			}
			ok := "✓"
			if !ev.Success {
				ok = "✗"
			}
			fmt.Fprintf(out, "%-6d  %-19s  %-14s  %-28s  %-6d  %-6d  %-7d  %s\n",
				ev.Sequence,
				ev.Timestamp.Local().Format("2006-01-02 15:04:05"),
				ev.Purpose,
				truncate(ev.Model, 28),
				ev.InputTokens,
				ev.OutputTokens,
				ev.LatencyMs,
				ok,
			)
			shown++
		}
		if shown == 0 {
			fmt.Fprintln(out, "No LLM requests found.")
		}
		return nil
	},
}

var llmViewCmd = &cobra.Command{
	Use:   "view <seq>",
	Short: "View the full request and response of one LLM call",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		seq, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || seq <= 0 {
			return fmt.Errorf("invalid sequence %q", args[0])
		}

		e, err := setupWithStore(cmd, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer e.Close()

		events, err := e.store.Events().LLMRequests(cmd.Context(),
			store.QueryOpts{After: seq - 1, Before: seq + 1})
		if err != nil {
			return fmt.Errorf("query event: %w", err)
		}
		if len(events) == 0 {
			return fmt.Errorf("LLM request %d not found", seq)
		}
		ev := events[0]

		out := cmd.OutOrStdout()
		sep := strings.Repeat("─", 60)
		fmt.Fprintf(out, "Seq:       %d\n", ev.Sequence)
		fmt.Fprintf(out, "Time:      %s\n", ev.Timestamp.Local().Format("2006-01-02 15:04:05"))
		fmt.Fprintf(out, "Provider:  %s\n", ev.Provider)
		fmt.Fprintf(out, "Model:     %s\n", ev.Model)
		fmt.Fprintf(out, "Purpose:   %s\n", ev.Purpose)
		fmt.Fprintf(out, "Tokens:    %d in / %d out\n", ev.InputTokens, ev.OutputTokens)
		fmt.Fprintf(out, "Latency:   %dms\n", ev.LatencyMs)
		fmt.Fprintf(out, "Success:   %v\n", ev.Success)
		if ev.ErrorMessage != "" {
			fmt.Fprintf(out, "Error:     %s\n", ev.ErrorMessage)
		}

		for _, part := range []struct{ title, body string }{
			{"REQUEST", ev.RequestBody},
			{"RESPONSE", ev.ResponseBody},
		} {
			fmt.Fprintln(out)
			fmt.Fprintln(out, sep)
			fmt.Fprintln(out, part.title)
			fmt.Fprintln(out, sep)
			if part.body == "" {
				fmt.Fprintln(out, "(not captured)")
				continue
			}
			fmt.Fprintln(out, part.body)
		}
		return nil
	},
}

type usage struct {
	calls, in, out int
	latency        int64
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show LLM token usage by purpose and model",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setupWithStore(cmd, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer e.Close()

		events, err := e.store.Events().LLMRequests(cmd.Context(), store.QueryOpts{})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintln(out, "No LLM usage recorded yet.")
			return nil
		}

		byPurpose := map[string]*usage{}
		byModel := map[string]*usage{}
		for _, ev := range events {
			for _, u := range []*usage{bucket(byPurpose, ev.Purpose), bucket(byModel, ev.Model)} {
				u.calls++
				u.in += ev.InputTokens
				u.out += ev.OutputTokens
				u.latency += ev.LatencyMs
			}
		}

		printUsage(cmd, "Purpose", byPurpose)
		fmt.Fprintln(out)
		printUsage(cmd, "Model", byModel)
		return nil
	},
}

func bucket(m map[string]*usage, key string) *usage {
	u, ok := m[key]
	if !ok {
		u = &usage{}
		m[key] = u
	}
	return u
}

func printUsage(cmd *cobra.Command, label string, m map[string]*usage) {
	out := cmd.OutOrStdout()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	fmt.Fprintf(out, "Usage by %s\n", label)
	fmt.Fprintln(out, strings.Repeat("─", 76))
	fmt.Fprintf(out, "%-28s  %6s  %10s  %10s  %8s\n", label, "Calls", "Input", "Output", "Avg Ms")
	fmt.Fprintln(out, strings.Repeat("─", 76))
	var total usage
	for _, k := range keys {
		u := m[k]
		fmt.Fprintf(out, "%-28s  %6d  %10d  %10d  %8d\n",
			truncate(orDash(k), 28), u.calls, u.in, u.out, u.latency/int64(u.calls))
		total.calls += u.calls
		total.in += u.in
		total.out += u.out
	}
	fmt.Fprintln(out, strings.Repeat("─", 76))
	fmt.Fprintf(out, "%-28s  %6d  %10d  %10d\n", "TOTAL", total.calls, total.in, total.out)
}

func init() {
	llmListCmd.Flags().IntP("limit", "n", 20, "Number of requests to show")
	llmListCmd.Flags().StringP("purpose", "p", "", "Filter by purpose (e.g. response-classification)")

	llmCmd.AddCommand(llmListCmd)
	llmCmd.AddCommand(llmViewCmd)
	llmCmd.AddCommand(llmStatsCmd)
}
