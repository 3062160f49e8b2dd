package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/abhisek/socratic/internal/api"
	"github.com/abhisek/socratic/internal/auth"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the tutoring HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		d, err := buildDeps(ctx)
		if err != nil {
			return err
		}
		defer d.close(context.Background())

		var a *auth.Authenticator
		if cfg.Auth.Enabled() {
			a = auth.New(cfg.Auth)
		} else {
			logger.Warn("teacher login disabled: no password hash configured")
		}
		srv := api.NewServer(cfg.Server, d.service, a, d.metrics, logger)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logger.Info("listening", zap.String("addr", cfg.Server.Addr))
			return srv.ListenAndServe()
		})
		g.Go(func() error {
			<-gctx.Done()
			logger.Info("shutting down")
			return srv.Shutdown(context.Background())
		})
		if interval, _ := cmd.Flags().GetDuration("purge-interval"); interval > 0 {
			g.Go(func() error { return purgeLoop(gctx, d, interval) })
		}

		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

// purgeLoop removes expired sessions until ctx ends.
func purgeLoop(ctx context.Context, d *deps, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			n, err := d.service.PurgeExpired(ctx)
			if err != nil {
				logger.Warn("purge expired sessions", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Info("purged expired sessions", zap.Int("count", n))
			}
		}
	}
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
	serveCmd.Flags().Duration("purge-interval", 10*time.Minute, "How often to delete expired sessions (0 disables)")
}
