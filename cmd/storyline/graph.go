package main

import (
	"fmt"

	"github.com/aretw0/storyline/internal/presentation/graph"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the story as a Mermaid diagram",
	Long: `Outputs a Mermaid flowchart (graph TD) of the story. With --session the path of a stored
session is highlighted; this needs the Redis store.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")

		if sessionID == "" {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(a.story.Steps(), nil))
			return nil
		}

		a, err := sharedApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		state, err := a.store.Load(cmd.Context(), sessionID)
		if err != nil {
			return fmt.Errorf("failed to load session %q: %w", sessionID, err)
		}
		overlay := &graph.Overlay{Choices: state.Choices, Cursor: state.Cursor}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(a.story.Steps(), overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("session", "", "Highlight the path of this session")
}
