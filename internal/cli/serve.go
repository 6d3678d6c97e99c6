package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"CareCompanion/pkg/config"
	"CareCompanion/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var addrFlag string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.GlobalConfig
		if addrFlag != "" {
			cfg.Addr = addrFlag
		}
		a, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer a.close()
		if a.cron != nil {
			a.cron.Start()
		}

		srv := &http.Server{
			Addr:              cfg.Addr,
			Handler:           a.engine,
			ReadHeaderTimeout: 10 * time.Second,
		}
		errCh := make(chan error, 1)
		go func() {
			logger.Info("HTTP server listening", zap.String("addr", cfg.Addr), zap.String("prefix", cfg.APIPrefix))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		select {
		case s := <-sig:
			logger.Info("shutting down", zap.String("signal", s.String()))
		case err := <-errCh:
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("HTTP server shutdown", zap.Error(err))
		}
		// 等待未完成的通知和落库
		done := make(chan struct{})
		go func() { a.runner.Wait(); close(done) }()
		select {
		case <-done:
		case <-ctx.Done():
			logger.Warn("detached tasks still running at shutdown")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&addrFlag, "addr", "", "Listen address (default: $ADDR or :3000)")
}
