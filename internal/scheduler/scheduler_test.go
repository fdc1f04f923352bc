package scheduler

import (
	"errors"
	"sync"
	"testing"
	"time"

	"reportbot/pkg/models"
)

// memScheduleStore 内存定时任务存储
type memScheduleStore struct {
	mu        sync.Mutex
	schedules []*models.Schedule
	listErr   error
	updateErr error
}

func (m *memScheduleStore) ListSchedules() ([]*models.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]*models.Schedule, len(m.schedules))
	for i, s := range m.schedules {
		copied := *s
		out[i] = &copied
	}
	return out, nil
}

func (m *memScheduleStore) UpdateLastFired(id int64, firedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	for _, s := range m.schedules {
		if s.ID == id {
			t := firedAt
			s.LastFiredAt = &t
			return nil
		}
	}
	return errors.New("not found")
}

// recordingDispatcher 记录分发顺序，可配置失败
type recordingDispatcher struct {
	mu          sync.Mutex
	dispatched  []int64
	failForever bool
}

func (d *recordingDispatcher) DispatchScheduled(sched *models.Schedule) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dispatched = append(d.dispatched, sched.ID)
	if d.failForever {
		return errors.New("generation failed")
	}
	return nil
}

func (d *recordingDispatcher) calls() []int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]int64, len(d.dispatched))
	copy(out, d.dispatched)
	return out
}

// mondaySchedule 周一 08:00 触发的日报任务
func mondaySchedule(id int64) *models.Schedule {
	days, _ := models.NewDaySet([]int{0})
	return &models.Schedule{
		ID:         id,
		ReportType: models.ReportTypeDaily,
		Tone:       models.ToneProfessional,
		Days:       days,
		Time:       models.TimeOfDay{Hour: 8, Minute: 0},
		Active:     true,
		CreatedAt:  time.Now(),
	}
}

// monday 2026-03-02 是周一
func monday(hour, minute, second int) time.Time {
	return time.Date(2026, 3, 2, hour, minute, second, 0, time.Local)
}

func newTestScheduler(store ScheduleStore, d Dispatcher) *Scheduler {
	return NewScheduler(store, d)
}

func TestEvaluateAt_FiresOncePerDay(t *testing.T) {
	store := &memScheduleStore{schedules: []*models.Schedule{mondaySchedule(1)}}
	dispatcher := &recordingDispatcher{}
	s := newTestScheduler(store, dispatcher)

	// 同一分钟内多次评估加上之后几分钟的评估，总共只触发一次
	ticks := []time.Time{
		monday(8, 0, 0),
		monday(8, 0, 30),
		monday(8, 1, 0),
		monday(8, 2, 30),
		monday(8, 5, 0),
	}
	for _, tick := range ticks {
		s.EvaluateAt(tick)
	}

	if got := dispatcher.calls(); len(got) != 1 {
		t.Fatalf("expected exactly one dispatch, got %d", len(got))
	}
}

func TestEvaluateAt_WrongDayOrTime(t *testing.T) {
	store := &memScheduleStore{schedules: []*models.Schedule{mondaySchedule(1)}}
	dispatcher := &recordingDispatcher{}
	s := newTestScheduler(store, dispatcher)

	// 周二 08:00 (2026-03-03)
	s.EvaluateAt(time.Date(2026, 3, 3, 8, 0, 0, 0, time.Local))
	// 周一 07:59 和 08:01
	s.EvaluateAt(monday(7, 59, 0))
	s.EvaluateAt(monday(8, 1, 0))

	if got := dispatcher.calls(); len(got) != 0 {
		t.Fatalf("expected no dispatches, got %v", got)
	}
}

func TestEvaluateAt_InactiveSkipped(t *testing.T) {
	sched := mondaySchedule(1)
	sched.Active = false
	store := &memScheduleStore{schedules: []*models.Schedule{sched}}
	dispatcher := &recordingDispatcher{}
	s := newTestScheduler(store, dispatcher)

	s.EvaluateAt(monday(8, 0, 0))

	if got := dispatcher.calls(); len(got) != 0 {
		t.Fatalf("inactive schedule dispatched: %v", got)
	}
}

func TestEvaluateAt_AscendingIDOrder(t *testing.T) {
	store := &memScheduleStore{schedules: []*models.Schedule{
		mondaySchedule(1),
		mondaySchedule(2),
		mondaySchedule(3),
	}}
	dispatcher := &recordingDispatcher{}
	s := newTestScheduler(store, dispatcher)

	s.EvaluateAt(monday(8, 0, 0))

	got := dispatcher.calls()
	if len(got) != 3 {
		t.Fatalf("expected 3 dispatches, got %d", len(got))
	}
	for i, id := range []int64{1, 2, 3} {
		if got[i] != id {
			t.Fatalf("dispatch order: got %v, want [1 2 3]", got)
		}
	}
}

func TestEvaluateAt_FailedDispatchStillAdvances(t *testing.T) {
	store := &memScheduleStore{schedules: []*models.Schedule{mondaySchedule(1)}}
	dispatcher := &recordingDispatcher{failForever: true}
	s := newTestScheduler(store, dispatcher)

	s.EvaluateAt(monday(8, 0, 0))
	// 分发失败不回滚触发标记，同一天内不重试
	s.EvaluateAt(monday(8, 0, 30))

	if got := dispatcher.calls(); len(got) != 1 {
		t.Fatalf("failed dispatch retried same day: %d calls", len(got))
	}

	// 下一个命中日（下周一 2026-03-09）正常触发
	s.EvaluateAt(time.Date(2026, 3, 9, 8, 0, 0, 0, time.Local))
	if got := dispatcher.calls(); len(got) != 2 {
		t.Fatalf("expected dispatch on next matching day, got %d calls", len(got))
	}
}

func TestEvaluateAt_FailureIsolatedPerSchedule(t *testing.T) {
	store := &memScheduleStore{schedules: []*models.Schedule{
		mondaySchedule(1),
		mondaySchedule(2),
	}}
	// 全部分发都失败，但每个任务仍被独立尝试
	dispatcher := &recordingDispatcher{failForever: true}
	s := newTestScheduler(store, dispatcher)

	s.EvaluateAt(monday(8, 0, 0))

	if got := dispatcher.calls(); len(got) != 2 {
		t.Fatalf("expected both schedules attempted, got %v", got)
	}
}

func TestEvaluateAt_UpdateFailureBlocksDispatch(t *testing.T) {
	store := &memScheduleStore{
		schedules: []*models.Schedule{mondaySchedule(1)},
		updateErr: errors.New("db locked"),
	}
	dispatcher := &recordingDispatcher{}
	s := newTestScheduler(store, dispatcher)

	// 触发标记写不进去就不分发，避免存储恢复后同槽重复触发
	s.EvaluateAt(monday(8, 0, 0))

	if got := dispatcher.calls(); len(got) != 0 {
		t.Fatalf("dispatched without marking fired: %v", got)
	}
}

func TestEvaluateAt_ListErrorSkipsRound(t *testing.T) {
	store := &memScheduleStore{listErr: errors.New("db down")}
	dispatcher := &recordingDispatcher{}
	s := newTestScheduler(store, dispatcher)

	s.EvaluateAt(monday(8, 0, 0))

	if got := dispatcher.calls(); len(got) != 0 {
		t.Fatalf("expected no dispatches on list failure, got %v", got)
	}
}

func TestEvaluateAt_AlreadyFiredPreviousDayFiresAgain(t *testing.T) {
	sched := mondaySchedule(1)
	prev := time.Date(2026, 2, 23, 8, 0, 0, 0, time.Local) // 上周一
	sched.LastFiredAt = &prev
	store := &memScheduleStore{schedules: []*models.Schedule{sched}}
	dispatcher := &recordingDispatcher{}
	s := newTestScheduler(store, dispatcher)

	s.EvaluateAt(monday(8, 0, 0))

	if got := dispatcher.calls(); len(got) != 1 {
		t.Fatalf("expected dispatch on new day, got %d", len(got))
	}
}

func TestScheduler_StartStop(t *testing.T) {
	store := &memScheduleStore{}
	s := newTestScheduler(store, &recordingDispatcher{})

	if err := s.Start(30); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !s.IsRunning() {
		t.Fatal("expected running after start")
	}
	if err := s.Start(30); err == nil {
		t.Fatal("expected error on double start")
	}

	s.Stop()
	if s.IsRunning() {
		t.Fatal("expected stopped after stop")
	}
	// 重复停止是幂等的
	s.Stop()
}
