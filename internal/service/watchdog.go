package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"LotterySync/internal/config"
	"LotterySync/internal/model"

	"github.com/sirupsen/logrus"
)

// RegionChecker 看门狗依赖的读取与按需抓取（RetrievalService 实现）
type RegionChecker interface {
	FetchRegion(ctx context.Context, region model.RegionCode, drawDate time.Time) ([]model.DrawSummary, error)
	TriggerSync(ctx context.Context, region model.RegionCode, drawDate time.Time) (*IngestResult, error)
}

// Watchdog 后台循环：立即执行一次，之后每个周期检查“今天”各区域是否有数据，缺失则触发抓取。
// 单个区域的错误（包括 panic）只记录日志，不影响其余区域与后续周期。
type Watchdog struct {
	checker  RegionChecker
	interval time.Duration
	location *time.Location
	regions  []model.RegionCode
	logger   *logrus.Logger
	now      func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewWatchdog(checker RegionChecker, cfg *config.WatchdogConfig, logger *logrus.Logger) *Watchdog {
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	return &Watchdog{
		checker:  checker,
		interval: interval,
		location: cfg.Location(),
		regions:  model.RegionPriority,
		logger:   logger,
		now:      time.Now,
	}
}

// Start 重复调用无效果
func (w *Watchdog) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	go w.loop(loopCtx, w.done)
	w.logger.WithField("interval", w.interval.String()).Info("看门狗已启动")
}

// Stop 发出停止信号并最多等待 timeout
func (w *Watchdog) Stop(timeout time.Duration) error {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()
	if cancel == nil {
		return nil
	}

	cancel()
	select {
	case <-done:
		w.logger.Info("看门狗已停止")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("看门狗未能在%s内停止", timeout)
	}
}

func (w *Watchdog) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		started := w.now()
		w.RunCycle(ctx)

		// 扣除本轮耗时；超时则按完整周期等待
		remaining := w.interval - w.now().Sub(started)
		if remaining <= 0 {
			remaining = w.interval
		}
		timer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// RunCycle 按 mb、mt、mn 顺序检查当天数据
func (w *Watchdog) RunCycle(ctx context.Context) {
	today := model.DateOnly(w.now().In(w.location))
	for _, region := range w.regions {
		if ctx.Err() != nil {
			return
		}
		if err := w.checkRegion(ctx, region, today); err != nil {
			w.logger.WithError(err).WithFields(logrus.Fields{
				"region": region,
				"date":   today.Format(model.DateLayout),
			}).Warn("看门狗检查失败，继续下一个区域")
		}
	}
}

func (w *Watchdog) checkRegion(ctx context.Context, region model.RegionCode, today time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	draws, err := w.checker.FetchRegion(ctx, region, today)
	if err != nil {
		return fmt.Errorf("读取当天数据失败: %w", err)
	}
	if len(draws) > 0 {
		w.logger.Debugf("看门狗：%s %s 已有数据", region, today.Format(model.DateLayout))
		return nil
	}

	w.logger.Infof("看门狗：%s %s 缺少数据，触发抓取", region, today.Format(model.DateLayout))
	if _, err := w.checker.TriggerSync(ctx, region, today); err != nil {
		return fmt.Errorf("抓取失败: %w", err)
	}
	return nil
}
