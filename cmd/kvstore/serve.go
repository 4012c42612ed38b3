package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gozephyr/kvstore/internal/api"
	"github.com/gozephyr/kvstore/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the store over HTTP",
	Long: `serve exposes the store as a JSON API under /kv/ and /admin/, with
Prometheus metrics on /metrics. SIGINT or SIGTERM shut the server down
gracefully and write the snapshot, if one is configured.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "listen address")
	cobra.CheckErr(v.BindPFlag("http.addr", serveCmd.Flags().Lookup("addr")))
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s, err := newStore(reg)
	if err != nil {
		return err
	}
	defer s.Close()

	handler := api.RegisterRoutes(http.NewServeMux(), api.NewHandler(s, log.Default()), reg)
	server := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: handler,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.HTTP.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown failed", "error", err)
		}
	}

	return saveSnapshot(s)
}
