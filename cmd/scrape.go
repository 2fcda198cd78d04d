package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"LotterySync/internal/adapter"
	"LotterySync/internal/export"
	"LotterySync/internal/interfaces"
	"LotterySync/internal/model"
	"LotterySync/internal/repository"
	"LotterySync/internal/service"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// scrapeOptions 一次抓取的输出方式
type scrapeOptions struct {
	store   bool   // 写入数据库
	outPath string // 非空时写出 SQL 迁移脚本
}

// scraper 构建好的抓取服务；不写库时 db 为 nil
type scraper struct {
	svc    *service.SyncService
	db     *gorm.DB
	logger *logrus.Logger
}

func (a *app) newScraper(store bool) (*scraper, error) {
	producers, err := adapter.NewProducerSet(a.cfg, a.logger)
	if err != nil {
		return nil, err
	}
	// 不写库时只用到 Collect，仓储保持为空
	var repo interfaces.DrawRepository
	var db *gorm.DB
	if store {
		db, err = openDatabase(&a.cfg.Database, a.logger)
		if err != nil {
			return nil, err
		}
		repo = repository.NewDrawRepository(db)
	}
	return &scraper{
		svc:    service.NewSyncService(repo, producers, a.logger, a.cfg),
		db:     db,
		logger: a.logger,
	}, nil
}

func (s *scraper) close() {
	closeDatabase(s.db, s.logger)
}

// run 抓取一个区域一天：写库和/或导出 SQL
func (s *scraper) run(ctx context.Context, region model.RegionCode, drawDate time.Time, opts scrapeOptions) error {
	var (
		result *service.IngestResult
		err    error
	)
	if opts.store {
		result, err = s.svc.SyncRegion(ctx, region, drawDate)
	} else {
		result, err = s.svc.Collect(ctx, region, drawDate)
	}
	if err != nil {
		return err
	}
	if result.Stats != nil {
		fmt.Printf("Upload complete: %d draws, %d prizes, %d results.\n",
			result.Stats.Draws, result.Stats.Prizes, result.Stats.Results)
	}

	if opts.outPath == "" {
		if !opts.store {
			fmt.Println("Nothing to do: storage disabled and no output path provided.")
		}
		return nil
	}
	f, err := os.Create(opts.outPath)
	if err != nil {
		return fmt.Errorf("创建导出文件失败: %w", err)
	}
	if err := export.WriteSQL(f, region, result.DrawDate, result.Records, result.Source); err != nil {
		_ = f.Close()
		return fmt.Errorf("生成SQL失败: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("Wrote SQL export to: %s\n", opts.outPath)
	return nil
}

func newScrapeCmd(a *app) *cobra.Command {
	var (
		dateStr string
		region  string
		outPath string
		noStore bool
	)
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape one region for one date and store it and/or export SQL",
		RunE: func(cmd *cobra.Command, args []string) error {
			if noStore && outPath == "" {
				return errors.New("--out is required when --no-store is set")
			}
			drawDate, err := parseFlagDate(dateStr, "--date")
			if err != nil {
				return err
			}
			code, err := model.ParseRegion(region)
			if err != nil {
				return err
			}
			s, err := a.newScraper(!noStore)
			if err != nil {
				return err
			}
			defer s.close()
			return s.run(cmd.Context(), code, drawDate, scrapeOptions{store: !noStore, outPath: outPath})
		},
	}
	cmd.Flags().StringVar(&dateStr, "date", "", "draw date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&region, "region", "", "region code: mb, mt or mn")
	cmd.Flags().StringVar(&outPath, "out", "", "optional path to write the SQL export")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "skip the database write and only generate SQL")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("region")
	return cmd
}

func newScrapeRangeCmd(a *app) *cobra.Command {
	var (
		startStr string
		endStr   string
		regions  []string
		noStore  bool
		outDir   string
		strict   bool
	)
	cmd := &cobra.Command{
		Use:   "scrape-range",
		Short: "Scrape a date range for one or more regions",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := parseFlagDate(startStr, "--start")
			if err != nil {
				return err
			}
			end := model.DateOnly(time.Now().In(a.cfg.Watchdog.Location()))
			if endStr != "" {
				if end, err = parseFlagDate(endStr, "--end"); err != nil {
					return err
				}
			}
			if end.Before(start) {
				return errors.New("--end must be on or after --start")
			}
			codes, err := resolveRegions(regions)
			if err != nil {
				return err
			}
			if outDir != "" {
				if outDir, err = filepath.Abs(outDir); err != nil {
					return err
				}
				if err := os.MkdirAll(outDir, 0o755); err != nil {
					return fmt.Errorf("创建导出目录失败: %w", err)
				}
			}

			s, err := a.newScraper(!noStore)
			if err != nil {
				return err
			}
			defer s.close()

			failures := runRange(cmd.Context(), start, end, codes, func(ctx context.Context, region model.RegionCode, day time.Time) error {
				fmt.Printf("Running scraper for %s (%s)...\n", day.Format(model.DateLayout), region)
				opts := scrapeOptions{store: !noStore}
				if outDir != "" {
					opts.outPath = filepath.Join(outDir, fmt.Sprintf("%s_%s.sql", day.Format(model.DateLayout), region))
				}
				return s.run(ctx, region, day, opts)
			}, strict, a.logger)

			if len(failures) > 0 {
				fmt.Printf("\nCompleted with failures on the following runs:\n%s\n", strings.Join(failures, "\n"))
				if strict {
					return errors.New("stopped on first failure (--strict)")
				}
				fmt.Println("Use --strict to stop on first failure if you need to investigate.")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&startStr, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&endStr, "end", "", "end date (YYYY-MM-DD), defaults to today")
	cmd.Flags().StringArrayVar(&regions, "region", nil, "region code to scrape; repeat for several, defaults to all")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "skip the database write and only generate SQL exports")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "directory for per date/region SQL exports")
	cmd.Flags().BoolVar(&strict, "strict", false, "stop immediately if any scrape fails")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

// runRange 日期升序、区域按给定顺序依次执行；失败记录后继续，strict 时在首次失败处停止
func runRange(ctx context.Context, start, end time.Time, regions []model.RegionCode,
	runOne func(ctx context.Context, region model.RegionCode, day time.Time) error, strict bool, logger *logrus.Logger) []string {
	var failures []string
	for day := model.DateOnly(start); !day.After(end); day = day.AddDate(0, 0, 1) {
		for _, region := range regions {
			if ctx.Err() != nil {
				return append(failures, fmt.Sprintf("%s (%s): %v", day.Format(model.DateLayout), region, ctx.Err()))
			}
			if err := runOne(ctx, region, day); err != nil {
				msg := fmt.Sprintf("%s (%s): %v", day.Format(model.DateLayout), region, err)
				failures = append(failures, msg)
				logger.WithError(err).WithFields(logrus.Fields{
					"region": region,
					"date":   day.Format(model.DateLayout),
				}).Warn("抓取失败")
				if strict {
					return failures
				}
			}
		}
	}
	return failures
}

func resolveRegions(raw []string) ([]model.RegionCode, error) {
	if len(raw) == 0 {
		return append([]model.RegionCode(nil), model.RegionPriority...), nil
	}
	out := make([]model.RegionCode, 0, len(raw))
	for _, r := range raw {
		code, err := model.ParseRegion(r)
		if err != nil {
			return nil, err
		}
		out = append(out, code)
	}
	return out, nil
}

func parseFlagDate(raw, flag string) (time.Time, error) {
	t, err := time.Parse(model.DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be in YYYY-MM-DD format", flag)
	}
	return t, nil
}
