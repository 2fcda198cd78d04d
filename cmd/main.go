package main

import (
	"fmt"
	"os"
	_ "time/tzdata" // 容器内可能没有 zoneinfo

	// 注册数据来源
	_ "LotterySync/internal/adapter/minhchinh"
	_ "LotterySync/internal/adapter/ollama"
	"LotterySync/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// app 子命令共享的配置与日志
type app struct {
	cfg      *config.Config
	logger   *logrus.Logger
	logLevel string
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "kqsx",
		Short:         "Vietnamese lottery results ingestion and query service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// 1. 加载配置文件
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("加载配置文件失败: %w", err)
			}
			a.cfg = cfg

			// 2. 初始化日志
			a.logger = logrus.New()
			level, err := logrus.ParseLevel(a.logLevel)
			if err != nil {
				return fmt.Errorf("无效的日志级别 %q: %w", a.logLevel, err)
			}
			a.logger.SetLevel(level)
			a.logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
			a.logger.Info("配置文件加载成功")
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "logrus level (debug/info/warn/error)")

	root.AddCommand(newServeCmd(a), newScrapeCmd(a), newScrapeRangeCmd(a))
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
