package cmd

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	httpapi "surplus-relay.com/surplus-relay/internal/http"
	"surplus-relay.com/surplus-relay/internal/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  "Starts the HTTP API, the notification workers and the expiry/no-show sweeper",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newApp()
		defer a.close()
		cfg := a.cfg

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		sweeper := services.NewSweeperService(a.claims, a.dispatch, cfg.SweepInterval(), cfg.AssignmentTimeout())
		sweeper.Start()

		var inbox httpapi.InboxReader
		if a.inbox != nil {
			inbox = a.inbox
		}

		e := echo.New()
		e.HideBanner = true
		e.Use(echomiddleware.Recover())
		httpapi.Register(e, httpapi.NewHandler(a.claims, a.dispatch, inbox), cfg.RateLimit)

		go func() {
			log.Printf("HTTP server listening on %s", cfg.AppURL)
			if err := e.Start(cfg.AppURL); err != nil {
				log.Printf("server stopped: %v", err)
			}
		}()

		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancel()

		_ = e.Shutdown(shutdownCtx)
		sweeper.Shutdown()
		a.emitter.Shutdown(shutdownCtx)

		log.Println("HTTP server, sweeper and notification workers shut down gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
