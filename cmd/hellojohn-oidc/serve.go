package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/hellojohn-oidc/internal/app"
	jwtx "github.com/dropDatabas3/hellojohn-oidc/internal/jwt"
	"github.com/dropDatabas3/hellojohn-oidc/internal/observability/logger"
	"github.com/dropDatabas3/hellojohn-oidc/internal/observability/tracing"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			log := logger.L().With(logger.Component("serve"))
			ctx = logger.ToContext(ctx, log)

			tp, err := tracing.New(ctx, tracing.Config{
				Endpoint:    cfg.Telemetry.Endpoint,
				Insecure:    cfg.Telemetry.Insecure,
				ServiceName: cfg.Telemetry.ServiceName,
				SampleRatio: cfg.Telemetry.SampleRatio,
			})
			if err != nil {
				return err
			}

			conn, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer conn.Close()
			if cfg.Storage.Migrate {
				if err := migrate(ctx, conn); err != nil {
					return err
				}
			}

			kv, err := openCache(ctx, cfg)
			if err != nil {
				return err
			}
			defer kv.Close()

			if cfg.JWT.KeyFile == "" {
				log.Warn("jwt.key_file not set, using an ephemeral signing key")
			}
			keys, err := jwtx.LoadKeySet(cfg.JWT.KeyFile)
			if err != nil {
				return err
			}

			var reg *prometheus.Registry
			if cfg.Metrics.Enabled {
				reg = prometheus.NewRegistry()
				reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			}

			a, err := app.New(app.Deps{
				Config:   cfg,
				Store:    conn,
				Cache:    kv,
				Keys:     keys,
				Logger:   logger.L(),
				Registry: reg,
				Tracing:  tp.Enabled(),
			})
			if err != nil {
				return err
			}

			srv := &http.Server{
				Addr:         cfg.Server.Addr,
				Handler:      a.Handler,
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				log.Info("listening", logger.String("addr", cfg.Server.Addr),
					logger.String("issuer", cfg.JWT.Issuer), logger.String("store", conn.Name()))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				log.Info("shutting down")
				sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
				defer cancel()
				err := srv.Shutdown(sctx)
				if terr := tp.Shutdown(sctx); terr != nil {
					log.Warn("tracing shutdown failed", logger.Err(terr))
				}
				return err
			})
			return g.Wait()
		},
	}
}
