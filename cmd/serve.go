package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"adfilter/adblock"
	"adfilter/logger"
	"adfilter/webapi"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动规则更新循环与 Web API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig()
		if err != nil {
			return err
		}
		logger.Infof("Using config file: %s", path)

		mgr, err := adblock.NewManager(&cfg.AdBlock, cfg.Cache)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		mgr.Start(ctx)
		logger.Infof("[AdBlock] Filtering %s, engine: %s", enabledText(cfg.AdBlock.Enable), cfg.AdBlock.Engine)

		webServer := webapi.NewServer(cfg, mgr, path)
		webServerDone := make(chan error, 1)
		go func() {
			webServerDone <- webServer.Start()
		}()

		select {
		case <-ctx.Done():
		case err := <-webServerDone:
			if err != nil {
				return err
			}
			if cfg.WebUI.Enabled {
				return nil
			}
			// Web API 关闭时只运行规则更新
			<-ctx.Done()
		}

		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := webServer.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("Failed to stop Web API server: %v", err)
		}

		logger.Info("Server gracefully stopped.")
		return nil
	},
}

func enabledText(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
