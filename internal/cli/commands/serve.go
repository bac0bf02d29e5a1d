package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/CrazyWorldPL/IVshop/internal/api/routes"
	"github.com/CrazyWorldPL/IVshop/internal/auth"
	"github.com/CrazyWorldPL/IVshop/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve [port]",
	Short: "Start the REST API server",
	Long: `Start the REST API server together with the background status refresher.

The server provides a REST API with Swagger documentation at /swagger/ and
Prometheus metrics at /metrics. If no port is specified, it uses the API_PORT
environment variable or defaults to 8080.`,
	Example: `  # Start on default port (8080 or API_PORT)
  ivshop serve

  # Start on specific port
  ivshop serve 9000`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := cfg.Validate(); err != nil {
			logger.Error("Invalid configuration", "error", err)
			os.Exit(1)
		}

		// Determine port
		port := cfg.Port
		if len(args) > 0 {
			parsedPort, err := strconv.Atoi(args[0])
			if err != nil {
				logger.Error("Invalid port number", "port", args[0], "error", err)
				os.Exit(1)
			}
			port = parsedPort
		}

		logger.Info("Starting IVshop API",
			"port", port,
			"database_driver", cfg.DatabaseDriver,
			"docker_enabled", cfg.DockerEnabled,
		)

		a := mustApp()
		defer a.Close()

		refresher := service.NewStatusRefresher(a.servers, a.status, cfg.StatusRefreshSchedule, logger)
		if err := refresher.Start(); err != nil {
			logger.Error("Failed to start status refresher", "error", err)
			os.Exit(1)
		}
		defer refresher.Stop()

		router := routes.NewRouter(routes.Dependencies{
			Registry:    a.registry,
			Catalog:     a.catalog,
			Storefront:  a.storefront,
			Fulfillment: a.fulfillment,
			Tokens:      auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL),
			Login: auth.NewDiscordProvider(auth.DiscordConfig{
				ClientID:     cfg.DiscordClientID,
				ClientSecret: cfg.DiscordClientSecret,
				RedirectURL:  cfg.DiscordRedirectURL,
				GuildID:      cfg.DiscordGuildID,
				BotToken:     cfg.DiscordBotToken,
			}, logger),
			Logs: a.logSource(),
		}, routes.Options{
			RedeemRateLimit: cfg.RedeemRateLimit,
			CORSOrigins:     cfg.CORSOrigins,
			OpenAPIPath:     cfg.OpenAPIPath,
		}, logger)

		// WriteTimeout stays 0: the console socket is long-lived and
		// redemptions are bounded by the RCON timeout.
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		// Channel to listen for errors coming from the listener
		serverErrors := make(chan error, 1)

		go func() {
			logger.Info("API server listening", "port", port, "address", srv.Addr)
			logger.Info("Swagger UI available", "url", fmt.Sprintf("http://localhost:%d/swagger/", port))
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			logger.Error("Error starting server", "error", err)
			os.Exit(1)

		case sig := <-shutdown:
			logger.Info("Received shutdown signal, starting graceful shutdown", "signal", sig.String())

			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("Error during shutdown", "error", err)
				if err := srv.Close(); err != nil {
					logger.Error("Could not stop server gracefully", "error", err)
					os.Exit(1)
				}
			}

			logger.Info("Server stopped gracefully")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
