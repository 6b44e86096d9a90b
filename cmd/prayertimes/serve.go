package main

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

	"github.com/spf13/cobra"
	"github.com/use-agent/prayertimes/api"
	"github.com/use-agent/prayertimes/api/handler"
	"github.com/use-agent/prayertimes/config"
	"github.com/use-agent/prayertimes/output"
	"golang.org/x/sync/errgroup"
)

const shutdownGrace = 5 * time.Second

var serveFlags struct {
	file   string
	format string
}

var serveCmd = &cobra.Command{
	Use:   "serve [--file <path>]",
	Short: "Serves a scraped file over the prayer-times HTTP API.",
	Long: `serve loads a file written by "scrape" and answers
GET /times?city=&date=, GET /cities and GET /api/v1/health.

Send SIGHUP to reload the file without restarting.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := configFrom(cmd)

		path := cfg.Output.Path
		if serveFlags.file != "" {
			path = serveFlags.file
		}
		format := serveFlags.format
		if format == "" {
			format = output.FormatOf(path)
		}
		return runServe(cmd.Context(), cfg, path, format)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveFlags.file, "file", "f", "", "file to serve (default from PRAYER_OUTPUT)")
	serveCmd.Flags().StringVar(&serveFlags.format, "format", "", "file format: json, yaml or sqlite (default from the file extension)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context, cfg *config.Config, path, format string) error {
	// ── 1. Load the scraped file ────────────────────────────────────
	// An unreadable file leaves the API up with no cities.
	store := handler.NewStore(nil, path)
	reload := func() {
		agg, err := output.Load(ctx, path, format)
		if err != nil {
			slog.Error("failed to load prayer times", "path", path, "error", err)
			return
		}
		store.Replace(agg, path)
		slog.Info("prayer times loaded", "path", path, "cities", agg.Len(), "records", agg.Records())
	}
	reload()

	// ── 2. Setup router ─────────────────────────────────────────────
	router := api.NewRouter(ctx, store, cfg, time.Now())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	// ── 3. Start HTTP server ────────────────────────────────────────
	g.Go(func() error {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	// ── 4. Reload on SIGHUP ─────────────────────────────────────────
	g.Go(func() error {
		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-hup:
				slog.Info("reload signal received", "path", path)
				reload()
			}
		}
	})

	// ── 5. Graceful shutdown ────────────────────────────────────────
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received")

		// Give in-flight requests a few seconds to complete.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server forced shutdown", "error", err)
			return err
		}
		slog.Info("HTTP server drained gracefully")
		return nil
	})

	err := g.Wait()
	slog.Info("prayertimes stopped")
	return err
}
