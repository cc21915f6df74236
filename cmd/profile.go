package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show gap profiles",
}

var profileShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show the gap profile produced by a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setupWithStore(cmd, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer e.Close()

		p, err := e.store.Profiles().BySession(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(cmd.OutOrStdout(), p)
		}
		printProfile(cmd.OutOrStdout(), p)
		return nil
	},
}

var profileCurrentCmd = &cobra.Command{
	Use:   "current <subject-id>",
	Short: "Show a learner's current gap profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setupWithStore(cmd, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer e.Close()

		p, err := e.store.Profiles().Current(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(cmd.OutOrStdout(), p)
		}
		printProfile(cmd.OutOrStdout(), p)
		return nil
	},
}

var profileHistoryCmd = &cobra.Command{
	Use:   "history <subject-id>",
	Short: "List a learner's profiles, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setupWithStore(cmd, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer e.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		ps, err := e.store.Profiles().History(cmd.Context(), args[0], limit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(ps) == 0 {
			fmt.Fprintln(out, "No profiles found.")
			return nil
		}
		fmt.Fprintf(out, "%-19s  %-36s  %-16s  %-22s  %5s\n", "Created", "Session", "Reason", "Root gap", "Conf")
		for _, p := range ps {
			fmt.Fprintf(out, "%-19s  %-36s  %-16s  %-22s  %4.0f%%\n",
				p.CreatedAt.Local().Format("2006-01-02 15:04:05"), p.SessionID, p.Reason,
				orDash(p.PrimaryGapNode), p.OverallConfidence*100)
		}
		return nil
	},
}

func init() {
	profileShowCmd.Flags().Bool("json", false, "Print as JSON")
	profileCurrentCmd.Flags().Bool("json", false, "Print as JSON")
	profileHistoryCmd.Flags().Int("limit", 20, "Maximum number of profiles")

	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileCurrentCmd)
	profileCmd.AddCommand(profileHistoryCmd)
}
