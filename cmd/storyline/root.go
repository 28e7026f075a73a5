package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "storyline",
	Short: "Storyline runs a linear two-choice story as a chat bot",
	Long: `Storyline walks every user through the same fixed sequence of steps.
Each step offers two options; any choice advances the user, and every journey ends the same way.

Configuration comes from STORYLINE_* environment variables; the flags below override them.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("story", "", "Path to the story file, JSON or YAML (env STORYLINE_STORY_PATH)")
	flags.Int("total", 0, "Exact number of steps the story must have (env STORYLINE_TOTAL_STEPS)")
	flags.String("messages", "", "Path to a YAML message catalog (env STORYLINE_MESSAGES_PATH)")
	flags.String("log-level", "", "Log level: debug, info, warn, error (env STORYLINE_LOG_LEVEL)")
	flags.String("log-format", "", "Log format: text or json (env STORYLINE_LOG_FORMAT)")
	flags.String("redis-addr", "", "Redis address for shared sessions (env STORYLINE_REDIS_ADDR)")
}
