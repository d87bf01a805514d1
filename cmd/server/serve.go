package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/prasenjit/route-explorer/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Route Explorer server",
	Long: `Starts the Route Explorer admin API.

The server will:
  - Load the route registry and cache the normalized catalog
  - Expose the Admin API at /_api/
  - Run and record endpoint tests
  - Sweep old test history on the retention schedule

Configuration is loaded from config.yaml in the current directory,
or specify a custom config file with the --config flag.`,
	RunE: runServe,
}

var (
	portFlag  int
	debugFlag bool
)

func init() {
	serveCmd.Flags().IntVarP(&portFlag, "port", "p", 0, "Override server port")
	serveCmd.Flags().BoolVar(&debugFlag, "debug", false, "Run gin in debug mode")

	// Bind flags to viper
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if portFlag > 0 {
		cfg.Server.Port = portFlag
	}

	if debugFlag {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.close()

	a.logger.Info("history storage ready", "type", cfg.Storage.Type, "path", cfg.Storage.Path)

	retention, err := scheduler.NewRetention(a.recorder, cfg.Retention.Schedule, cfg.Settings.LogRetentionDays, a.logger)
	if err != nil {
		return err
	}
	if err := retention.Start(ctx); err != nil {
		return err
	}
	defer retention.Stop()

	// Test calls may take up to the 300 second timeout
	addr := cfg.Address()
	server := &http.Server{
		Addr:         addr,
		Handler:      a.router().Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 310 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("starting route explorer", "addr", addr, "api", "http://"+addr+"/_api/")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	a.logger.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", "error", err)
	}

	a.logger.Info("server stopped")
	return nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
