package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"LotterySync/internal/adapter"
	"LotterySync/internal/api"
	"LotterySync/internal/repository"
	"LotterySync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the hourly watchdog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(parent context.Context) error {
	cfg, logger := a.cfg, a.logger

	db, err := openDatabase(&cfg.Database, logger)
	if err != nil {
		return err
	}
	defer closeDatabase(db, logger)

	producers, err := adapter.NewProducerSet(cfg, logger)
	if err != nil {
		return err
	}
	repo := repository.NewDrawRepository(db)
	syncSvc := service.NewSyncService(repo, producers, logger, cfg)
	cache := service.NewDrawCache(cfg.Cache.MaxEntries, cfg.Cache.CacheTTL())
	retrieval := service.NewRetrievalService(repo, cache, syncSvc, logger)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var watchdog *service.Watchdog
	if cfg.Watchdog.Enabled {
		watchdog = service.NewWatchdog(retrieval, &cfg.Watchdog, logger)
		watchdog.Start(ctx)
	}

	// 配置Gin运行模式（从配置读取：debug/release）
	gin.SetMode(cfg.Server.Mode)
	router := api.NewRouter(
		api.NewSummaryHandler(retrieval, logger, cfg),
		api.NewSyncHandler(retrieval, logger, cfg),
		cfg.Server.Pprof,
	)
	logger.Infof("Gin运行模式: %s", cfg.Server.Mode)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Infof("服务启动成功，端口：%d", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("收到退出信号，开始关闭服务")
	case err := <-serveErr:
		if err != nil {
			runErr = fmt.Errorf("启动服务失败: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Watchdog.StopTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("HTTP服务关闭超时")
	}
	if watchdog != nil {
		if err := watchdog.Stop(cfg.Watchdog.StopTimeout); err != nil {
			logger.WithError(err).Warn("看门狗未在超时内退出")
		}
	}
	logger.Info("服务已退出")
	return runErr
}
