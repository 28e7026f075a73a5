package main

import (
	"fmt"

	"github.com/aretw0/storyline/pkg/dispatch"
	"github.com/aretw0/storyline/pkg/story"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [story-file]",
	Short: "Check the story and message catalog",
	Long: `Loads the story and reports every malformed step, duplicate or missing id and count mismatch
at once. When a message catalog is configured its templates are checked too.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if len(args) > 0 {
			cfg.StoryPath = args[0]
		}

		st, err := story.LoadFile(cfg.StoryPath, cfg.TotalSteps)
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		if cfg.MessagesPath != "" {
			if _, err := dispatch.LoadMessages(cfg.MessagesPath); err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Story is valid: %d steps ✅\n", st.Len())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
