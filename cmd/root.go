package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rootcause",
	Short: "Adaptive diagnostic engine for foundational math gaps",
	Long: "rootcause traces an observed learning difficulty back through a curriculum " +
		"dependency graph to the foundational skill that is missing.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDiagnose(cmd)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides ROOTCAUSE_DB)")
	rootCmd.PersistentFlags().String("curriculum", "", "Curriculum YAML/JSON file (overrides ROOTCAUSE_CURRICULUM; default embedded)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides ROOTCAUSE_LOG_LEVEL)")
	rootCmd.PersistentFlags().String("trace-file", "", "Append OpenTelemetry spans as JSON to this file (overrides ROOTCAUSE_TRACE_FILE)")

	addDiagnoseFlags(rootCmd)

	rootCmd.AddCommand(diagnoseCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}
