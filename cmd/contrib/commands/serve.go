package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/warp/contribution-engine/api"
	"github.com/warp/contribution-engine/store/sqlite"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Starts the REST API server.

Startup:
  1. Load configuration (.env, environment, flags)
  2. Load and normalize the statutory tables
  3. Open the SQLite store
  4. Serve until SIGINT/SIGTERM, then drain for up to 30s

Endpoints:
  /api/periods        Period and wage editing
  /api/calculations   Calculation runs
  /api/tables         Loaded tables
  /api/scenarios      Demo scenarios

Example:
  contrib serve
  contrib serve --port 3000 --db ":memory:"`,
	RunE: runServe,
}

var (
	servePort string
	serveDB   string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&servePort, "port", "", "HTTP port (default PORT or 8080)")
	serveCmd.Flags().StringVar(&serveDB, "db", "", `SQLite path, ":memory:" for in-memory (default DB_PATH)`)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, set, err := setup(os.Stdout)
	if err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	if servePort != "" {
		cfg.Port = servePort
	}
	if serveDB != "" {
		cfg.DBPath = serveDB
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	handler := api.NewHandler(store, store, set, log)
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      api.NewRouter(handler, cfg.CORSOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Str("db", cfg.DBPath).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errc:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	log.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}
