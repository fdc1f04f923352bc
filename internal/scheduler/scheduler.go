package scheduler

import (
	"fmt"
	"sync"
	"time"

	"reportbot/pkg/logger"
	"reportbot/pkg/models"

	"github.com/robfig/cron/v3"
)

// ScheduleStore 定时任务存储接口，避免循环依赖
type ScheduleStore interface {
	ListSchedules() ([]*models.Schedule, error)
	UpdateLastFired(id int64, firedAt time.Time) error
}

// Dispatcher 报告分发接口
type Dispatcher interface {
	DispatchScheduled(sched *models.Schedule) error
}

// Scheduler 任务调度器
// 以固定周期评估全部定时任务，命中的任务在本分钟内恰好触发一次
type Scheduler struct {
	cron       *cron.Cron
	store      ScheduleStore
	dispatcher Dispatcher
	mu         sync.Mutex
	tickMu     sync.Mutex
	running    bool
}

// NewScheduler 创建任务调度器
func NewScheduler(store ScheduleStore, dispatcher Dispatcher) *Scheduler {
	return &Scheduler{
		cron:       cron.New(),
		store:      store,
		dispatcher: dispatcher,
	}
}

// Start 启动调度器
// tickSeconds 为评估周期；必须小于 60 秒，否则可能整分钟错过命中窗口
func (s *Scheduler) Start(tickSeconds int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	if tickSeconds <= 0 || tickSeconds > 60 {
		tickSeconds = 30
	}

	cronExpr := fmt.Sprintf("@every %ds", tickSeconds)
	_, err := s.cron.AddFunc(cronExpr, s.runTick)
	if err != nil {
		return fmt.Errorf("failed to add tick job: %w", err)
	}

	s.cron.Start()
	s.running = true

	fmt.Printf("⏰ 任务调度器已启动 (评估周期: %d秒)\n", tickSeconds)
	return nil
}

// Stop 停止调度器
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.cron.Stop()
	s.running = false
	fmt.Println("⏰ 任务调度器已停止")
}

// IsRunning 检查是否运行中
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// runTick 执行一次评估
// 上一轮评估还未结束时跳过本轮，保证评估严格串行、不并发
func (s *Scheduler) runTick() {
	if !s.tickMu.TryLock() {
		logger.Warn("上一轮调度评估尚未结束,跳过本轮")
		return
	}
	defer s.tickMu.Unlock()

	s.EvaluateAt(time.Now())
}

// EvaluateAt 按给定时间评估全部定时任务
//
// 命中条件（分钟精度）：任务激活、星期命中、时分精确相等，且当天尚未触发过
// （last_fired_at 为空或不在同一自然日）。命中后先写 last_fired_at 再执行分发，
// 即使生成耗时很长或失败也不会在同一时间槽内重复触发；失败的分发不回滚
// last_fired_at，下一个命中时间槽会正常触发。
//
// 已知限制：如果进程在某个命中分钟内完全没有评估（睡眠、宕机），该次触发
// 永久跳过，不做补发。
func (s *Scheduler) EvaluateAt(now time.Time) {
	// 每轮只读取一次快照，避免看到中途变化的任务列表
	schedules, err := s.store.ListSchedules()
	if err != nil {
		logger.Error("读取定时任务失败: %v", err)
		return
	}

	weekday := models.WeekdayIndex(now.Weekday())

	// 存储层按 id 升序返回，因此同一轮内按 id 升序依次分发
	for _, sched := range schedules {
		if !sched.Active {
			continue
		}
		if !sched.Days.Has(weekday) {
			continue
		}
		if !sched.Time.Matches(now) {
			continue
		}
		if sched.LastFiredAt != nil && sameDay(*sched.LastFiredAt, now) {
			// 当天已触发过，幂等保护
			continue
		}

		// 先标记触发，再执行可能耗时的生成调用
		if err := s.store.UpdateLastFired(sched.ID, now); err != nil {
			logger.Error("更新触发时间失败 (schedule %d): %v", sched.ID, err)
			continue
		}

		logger.Info("定时任务命中: schedule %d (%s %s)", sched.ID, sched.ReportType, sched.Time)

		// 单个任务分发失败不影响同一轮的其他任务
		if err := s.dispatcher.DispatchScheduled(sched); err != nil {
			logger.Error("定时任务分发失败 (schedule %d): %v", sched.ID, err)
		}
	}
}

// sameDay 检查两个时间是否处于同一自然日（本地时区）
func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
