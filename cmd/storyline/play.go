package main

import (
	"os"

	"github.com/aretw0/storyline/internal/presentation/tui"
	"github.com/aretw0/storyline/pkg/adapters/terminal"
	"github.com/spf13/cobra"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play the story in the terminal",
	Long: `Plays one journey in the console. Answer with 1 or 2, use /progress, /reset and /help
like in the bot, and type quit to leave. The journey resumes where it stopped when sessions are in Redis.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")
		restart, _ := cmd.Flags().GetBool("restart")
		plain, _ := cmd.Flags().GetBool("plain")

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		opts := []terminal.Option{
			terminal.WithLogger(a.logger),
			terminal.WithRestart(restart),
		}
		if !plain && terminal.IsTerminal(os.Stdout) {
			tui.PrintBanner(os.Stdout)
			render, err := tui.NewRenderer(0)
			if err != nil {
				a.logger.Warn("Falling back to plain output", "err", err)
			} else {
				opts = append(opts, terminal.WithRenderer(render))
			}
		}

		ctx, stop := signalContext(cmd)
		defer stop()
		return terminal.New(a.dispatcher, sessionID, opts...).Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(playCmd)
	playCmd.Flags().String("session", "local", "Session id to play as")
	playCmd.Flags().Bool("restart", false, "Start a new journey instead of resuming")
	playCmd.Flags().Bool("plain", false, "Disable the banner and markdown rendering")
}
