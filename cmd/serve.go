package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/terralens/landsat-dash/internal/dashboard"
	"github.com/terralens/landsat-dash/internal/tiles"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the composite dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initService(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		cfg.Server.Port = resolvePort(servePort, cfg.Server.Port)

		sessionTTL := time.Duration(cfg.Tiles.SessionTTLMins) * time.Minute
		sessions := tiles.NewSessions(env.Service.MintTiles, sessionTTL)
		cache := tiles.NewCache(cfg.Tiles.CacheCapacity, sessionTTL)
		proxy := tiles.NewProxy(env.Engine, sessions, cache)

		srv, err := dashboard.New(cfg.Server, env.Service, proxy)
		if err != nil {
			return err
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// resolvePort prefers the flag value over the configured one.
func resolvePort(flag, configured int) int {
	if flag != 0 {
		return flag
	}
	return configured
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
