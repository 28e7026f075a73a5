package main

import (
	"net/http"
	"time"

	httpadapter "github.com/aretw0/storyline/pkg/adapters/http"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long:  `Serves the story over a JSON API with Server-Sent Events, exposing /metrics on the same port.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		addr := a.cfg.HTTPAddr
		if cmd.Flags().Changed("addr") {
			addr, _ = cmd.Flags().GetString("addr")
		}

		handler := httpadapter.NewHandler(a.engine, a.dispatcher,
			httpadapter.WithLogger(a.logger),
			httpadapter.WithMetricsHandler(a.metrics.Handler()),
		)
		srv := &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signalContext(cmd)
		defer stop()

		if err := runServer(ctx, srv, a.logger); err != nil {
			return err
		}
		a.logger.Info("Server stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Address to listen on (env STORYLINE_HTTP_ADDR, default :8080)")
}
