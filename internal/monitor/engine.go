package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"reportbot/internal/activity"
	"reportbot/pkg/logger"
	"reportbot/pkg/models"
)

var (
	// ErrAlreadyRunning 监控器已在运行
	ErrAlreadyRunning = errors.New("activity monitor already running")
	// ErrNotRunning 监控器未运行
	ErrNotRunning = errors.New("activity monitor not running")
)

// AppProber 前台应用探测接口
type AppProber interface {
	CurrentApp() (string, error)
}

// SampleStore 采样存储接口，避免直接依赖具体存储实现
type SampleStore interface {
	SaveSample(sample *models.ActivitySample) error
	GetSamples(start, end time.Time) ([]*models.ActivitySample, error)
}

// Engine 活动监控引擎
// 运行状态只驻留内存，进程重启后总是回到停止状态；已落盘的采样不受影响
type Engine struct {
	store    SampleStore
	prober   AppProber
	minIntvl int

	mu        sync.RWMutex
	running   bool
	interval  int
	startedAt time.Time
	ctx       context.Context
	cancel    context.CancelFunc
	ticker    *time.Ticker
}

// NewEngine 创建活动监控引擎
// minInterval: 采样间隔下限（秒），防止过于频繁的采样占用资源
func NewEngine(store SampleStore, prober AppProber, minInterval int) *Engine {
	if minInterval < 1 {
		minInterval = 1
	}
	return &Engine{
		store:    store,
		prober:   prober,
		minIntvl: minInterval,
	}
}

// Start 启动活动监控
// 已在运行时返回 ErrAlreadyRunning；间隔小于下限时按下限执行
func (e *Engine) Start(intervalSeconds int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return ErrAlreadyRunning
	}

	if intervalSeconds < e.minIntvl {
		logger.Warn("采样间隔 %d 秒低于下限，已调整为 %d 秒", intervalSeconds, e.minIntvl)
		intervalSeconds = e.minIntvl
	}

	e.ctx, e.cancel = context.WithCancel(context.Background())
	e.ticker = time.NewTicker(time.Duration(intervalSeconds) * time.Second)
	e.running = true
	e.interval = intervalSeconds
	e.startedAt = time.Now()

	go e.sampleLoop(e.ctx, e.ticker, intervalSeconds)

	logger.Info("活动监控已启动,间隔: %d秒", intervalSeconds)
	return nil
}

// Stop 停止活动监控
// 未运行时返回 ErrNotRunning；采样循环在下一次唤醒边界退出，已记录的采样保持不变
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return ErrNotRunning
	}

	e.cancel()
	e.ticker.Stop()
	e.running = false
	e.interval = 0
	e.startedAt = time.Time{}

	logger.Info("活动监控已停止")
	return nil
}

// IsRunning 检查是否运行中
func (e *Engine) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}

// Status 返回当前监控状态（只读，不会阻塞采样循环）
func (e *Engine) Status() models.MonitorStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return models.MonitorStatus{
		IsRunning:           e.running,
		PollIntervalSeconds: e.interval,
		StartedAt:           e.startedAt,
	}
}

// TodaySummary 返回当日活动摘要
func (e *Engine) TodaySummary() (models.ActivitySummary, error) {
	now := time.Now()
	start, end := activity.DayRange(now)

	samples, err := e.store.GetSamples(start, end)
	if err != nil {
		return models.ActivitySummary{}, fmt.Errorf("failed to load samples: %w", err)
	}

	return activity.Summarize(samples, now), nil
}

// sampleLoop 采样循环
// 每次唤醒探测一次前台应用，把整个间隔归属给该应用
// 探测失败视为瞬时错误：跳过本次采样，循环继续
func (e *Engine) sampleLoop(ctx context.Context, ticker *time.Ticker, intervalSeconds int) {
	logger.Info("采样循环已启动")
	for {
		select {
		case <-ctx.Done():
			logger.Info("采样循环已停止")
			return
		case <-ticker.C:
			app, err := e.prober.CurrentApp()
			if err != nil {
				logger.Warn("读取前台应用失败,跳过本次采样: %v", err)
				continue
			}

			sample := &models.ActivitySample{
				Timestamp:       time.Now(),
				AppIdentifier:   app,
				DurationSeconds: intervalSeconds,
			}
			if err := e.store.SaveSample(sample); err != nil {
				logger.Error("保存采样失败: %v", err)
				continue
			}

			logger.Debug("采样完成: %s (+%ds)", app, intervalSeconds)
		}
	}
}
