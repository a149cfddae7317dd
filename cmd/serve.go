/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/valpere/bhasha/internal/server"
	"github.com/valpere/bhasha/internal/webhook"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve detection and chat over HTTP",
	Long: `Start the HTTP API used by the chat widget.

Endpoints:
  GET  /healthz        liveness probe
  GET  /metrics        Prometheus metrics
  GET  /v1/languages   supported languages
  POST /v1/detect      identify the language of a message
  POST /v1/chat        detect and forward a message to the assistant backend

/v1/chat is available only when webhook.url is configured.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := globalConfig

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		a, err := newApp(ctx, cfg, true)
		if err != nil {
			return err
		}
		defer a.Close()

		opts := server.Options{
			CORSOrigin: cfg.Server.CORSOrigin,
			Logger:     slog.Default(),
		}
		if cfg.Webhook.URL != "" {
			opts.Replier = webhook.NewClient(cfg.Webhook.URL, cfg.Webhook.Timeout)
		} else {
			slog.Warn("webhook.url not set, /v1/chat is disabled")
		}
		if db := a.history(); db != nil {
			opts.History = db
		}

		if !cfg.Verbose && cfg.LogLevel != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}

		srv := server.New(a.classifier.Catalog(), a.orch, opts)

		httpServer := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:           srv.Router(),
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			slog.Info("Starting server", "addr", httpServer.Addr, "services", a.orch.Services())
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Server error", "error", err)
				cancel()
			}
		}()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

		select {
		case sig := <-sigChan:
			slog.Info("Received shutdown signal", "signal", sig.String())
		case <-ctx.Done():
			slog.Info("Context cancelled, initiating shutdown")
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
			return err
		}
		slog.Info("Graceful shutdown completed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("host", "H", "0.0.0.0", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")
	serveCmd.Flags().String("cors-origin", "*", "CORS allowed origin")

	viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("server.cors_origin", serveCmd.Flags().Lookup("cors-origin"))
}
