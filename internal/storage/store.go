package storage

import (
	"errors"
	"time"

	"reportbot/pkg/models"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("record not found")

// Store 持久化存储接口
// 默认实现为 SQLite，设置 DATABASE_URL 时切换为 PostgreSQL
type Store interface {
	// 定时任务
	CreateSchedule(in *models.ScheduleInput) (*models.Schedule, error)
	ListSchedules() ([]*models.Schedule, error)
	DeleteSchedule(id int64) error
	ToggleSchedule(id int64) (*models.Schedule, error)
	UpdateLastFired(id int64, firedAt time.Time) error

	// 活动采样（仅追加）
	SaveSample(sample *models.ActivitySample) error
	GetSamples(start, end time.Time) ([]*models.ActivitySample, error)

	Close() error
}
