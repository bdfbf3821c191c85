package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rflorenc/deploy-ledger/internal/api"
	"github.com/rflorenc/deploy-ledger/internal/config"
	"github.com/rflorenc/deploy-ledger/internal/logger"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the ledger HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			// Flags take precedence over file and environment values.
			if listen != "" {
				cfg.Listen = listen
			}

			log, err := logger.NewWithConfig(cfg.LoggerConfig())
			if err != nil {
				return err
			}
			defer log.Close()
			logger.SetDefault(log)

			server, err := newServer(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg.Listen, api.NewRouter(server))
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address")
	return cmd
}

// newServer builds the API state and preloads configured servers and DBMS
// maps.
func newServer(cfg *config.Config) (*api.Server, error) {
	server := api.NewServer()

	conns, err := cfg.ServerConnections()
	if err != nil {
		return nil, err
	}
	for _, c := range conns {
		server.Servers.Create(c)
		logger.Infof("loaded server %s", c)
	}

	registry, err := cfg.Registry()
	if err != nil {
		return nil, err
	}
	server.Dbms = registry
	for _, s := range registry.Servers() {
		logger.Infof("loaded dbms map for %s (%d mappings)", s, registry.Get(s).Len())
	}
	return server, nil
}

func serve(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}

	errc := make(chan error, 1)
	go func() {
		logger.Infof("deployctl %s listening on %s", version, addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listening on %s: %w", addr, err)
	case <-ctx.Done():
	}

	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
