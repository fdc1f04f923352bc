package monitor

import (
	"errors"
	"sync"
	"testing"
	"time"

	"reportbot/pkg/models"
)

// fakeProber 固定返回同一应用名
type fakeProber struct {
	app string
	err error
}

func (p *fakeProber) CurrentApp() (string, error) {
	return p.app, p.err
}

// memSampleStore 内存采样存储
type memSampleStore struct {
	mu      sync.Mutex
	samples []*models.ActivitySample
	saveErr error
}

func (m *memSampleStore) SaveSample(sample *models.ActivitySample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.samples = append(m.samples, sample)
	return nil
}

func (m *memSampleStore) GetSamples(start, end time.Time) ([]*models.ActivitySample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.ActivitySample
	for _, s := range m.samples {
		if !s.Timestamp.Before(start) && s.Timestamp.Before(end) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memSampleStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.samples)
}

func TestEngine_StartStop(t *testing.T) {
	store := &memSampleStore{}
	eng := NewEngine(store, &fakeProber{app: "Safari"}, 1)

	if eng.IsRunning() {
		t.Fatal("engine should start stopped")
	}

	if err := eng.Start(5); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = eng.Stop() })

	if !eng.IsRunning() {
		t.Fatal("engine should be running after start")
	}

	status := eng.Status()
	if !status.IsRunning || status.PollIntervalSeconds != 5 {
		t.Fatalf("status: %+v", status)
	}
	if status.StartedAt.IsZero() {
		t.Error("started_at not set")
	}

	if err := eng.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if eng.IsRunning() {
		t.Fatal("engine should be stopped after stop")
	}

	status = eng.Status()
	if status.IsRunning || status.PollIntervalSeconds != 0 {
		t.Fatalf("status after stop: %+v", status)
	}
}

func TestEngine_DoubleStart(t *testing.T) {
	eng := NewEngine(&memSampleStore{}, &fakeProber{app: "Safari"}, 1)

	if err := eng.Start(5); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = eng.Stop() })

	if err := eng.Start(5); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second start: expected ErrAlreadyRunning, got %v", err)
	}
}

func TestEngine_StopWhenStopped(t *testing.T) {
	eng := NewEngine(&memSampleStore{}, &fakeProber{app: "Safari"}, 1)

	if err := eng.Stop(); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning, got %v", err)
	}
}

func TestEngine_IntervalFloor(t *testing.T) {
	eng := NewEngine(&memSampleStore{}, &fakeProber{app: "Safari"}, 5)

	if err := eng.Start(1); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = eng.Stop() })

	// 低于下限的间隔被钳制到下限，而不是报错
	if got := eng.Status().PollIntervalSeconds; got != 5 {
		t.Fatalf("interval: got %d, want clamped to 5", got)
	}
}

func TestEngine_RecordsSamples(t *testing.T) {
	store := &memSampleStore{}
	eng := NewEngine(store, &fakeProber{app: "Xcode"}, 1)

	if err := eng.Start(1); err != nil {
		t.Fatalf("start: %v", err)
	}

	// 等待至少一次采样
	deadline := time.After(5 * time.Second)
	for store.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("no samples recorded within 5s")
		case <-time.After(50 * time.Millisecond):
		}
	}

	if err := eng.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}

	// 停止后已记录的采样保持不变
	countAfterStop := store.count()
	time.Sleep(1500 * time.Millisecond)
	if store.count() < countAfterStop {
		t.Fatal("samples disappeared after stop")
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	first := store.samples[0]
	if first.AppIdentifier != "Xcode" || first.DurationSeconds != 1 {
		t.Fatalf("sample: %+v", first)
	}
}

func TestEngine_ProbeFailureSkipsSample(t *testing.T) {
	store := &memSampleStore{}
	prober := &fakeProber{err: errors.New("probe failed")}
	eng := NewEngine(store, prober, 1)

	if err := eng.Start(1); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = eng.Stop() })

	// 探测失败视为瞬时错误：不落盘，循环也不退出
	time.Sleep(2500 * time.Millisecond)
	if store.count() != 0 {
		t.Fatalf("expected no samples on probe failure, got %d", store.count())
	}
	if !eng.IsRunning() {
		t.Fatal("engine should keep running despite probe failures")
	}
}

func TestEngine_TodaySummary(t *testing.T) {
	store := &memSampleStore{}
	now := time.Now()
	store.samples = []*models.ActivitySample{
		{Timestamp: now.Add(-time.Hour), AppIdentifier: "Safari", DurationSeconds: 300},
		{Timestamp: now.Add(-30 * time.Minute), AppIdentifier: "Safari", DurationSeconds: 300},
	}

	eng := NewEngine(store, &fakeProber{app: "Safari"}, 1)

	summary, err := eng.TodaySummary()
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	// 午夜前后一小时内运行时当日归属会变化，只验证结构合理
	if summary.TotalTrackedSeconds < 0 {
		t.Fatalf("summary: %+v", summary)
	}
}
