package main

import (
	"github.com/aretw0/storyline/pkg/adapters/telegram"
	"github.com/spf13/cobra"
)

var telegramCmd = &cobra.Command{
	Use:   "telegram",
	Short: "Run the Telegram bot (long polling)",
	Long: `Connects to the Telegram Bot API with STORYLINE_BOT_TOKEN (or BOT_TOKEN) and serves the story
to every user who writes /start. Sessions are kept in memory unless a Redis address is configured.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.cfg.RequireBotToken(); err != nil {
			return err
		}
		workers, _ := cmd.Flags().GetInt("concurrency")

		api, err := telegram.Connect(a.cfg.BotToken)
		if err != nil {
			return err
		}
		a.logger.Info("Authorized on Telegram", "bot", api.Self.UserName)

		ctx, stop := signalContext(cmd)
		defer stop()
		a.serveMetrics(ctx)

		bot := telegram.New(api, a.dispatcher,
			telegram.WithLogger(a.logger),
			telegram.WithConcurrency(workers),
		)
		return bot.Run(ctx, api)
	},
}

func init() {
	rootCmd.AddCommand(telegramCmd)
	telegramCmd.Flags().Int("concurrency", telegram.DefaultConcurrency, "Maximum number of updates handled in parallel")
}
