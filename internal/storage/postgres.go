package storage

import (
	"context"
	"fmt"
	"time"

	"reportbot/pkg/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore 基于 PostgreSQL 的存储实现
// 设置 DATABASE_URL 环境变量时由 main 选用
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore 创建 PostgreSQL 存储
func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// initSchema 初始化数据库表结构
func (s *PostgresStore) initSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS schedules (
			id BIGSERIAL PRIMARY KEY,
			report_type TEXT NOT NULL,
			tone TEXT NOT NULL,
			days_mask INT NOT NULL,
			hour INT NOT NULL,
			minute INT NOT NULL,
			notes TEXT NOT NULL DEFAULT '',
			active BOOLEAN NOT NULL DEFAULT TRUE,
			last_fired_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS activity_samples (
			id BIGSERIAL PRIMARY KEY,
			timestamp TIMESTAMPTZ NOT NULL,
			app_identifier TEXT NOT NULL,
			duration_seconds INT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_samples_timestamp ON activity_samples(timestamp)`,
	}

	for _, q := range queries {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("failed to init schema: %w", err)
		}
	}
	return nil
}

// Close 关闭连接池
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// CreateSchedule 创建定时任务
func (s *PostgresStore) CreateSchedule(in *models.ScheduleInput) (*models.Schedule, error) {
	days, tod, err := in.Validate()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var id int64
	err = s.pool.QueryRow(context.Background(),
		`INSERT INTO schedules (report_type, tone, days_mask, hour, minute, notes, active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7)
		 RETURNING id`,
		string(in.ReportType), string(in.Tone), int(days), tod.Hour, tod.Minute, in.Notes, now,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to insert schedule: %w", err)
	}

	return &models.Schedule{
		ID:         id,
		ReportType: in.ReportType,
		Tone:       in.Tone,
		Days:       days,
		Time:       tod,
		Notes:      in.Notes,
		Active:     true,
		CreatedAt:  now,
	}, nil
}

// ListSchedules 按 id 升序返回全部定时任务
func (s *PostgresStore) ListSchedules() ([]*models.Schedule, error) {
	rows, err := s.pool.Query(context.Background(),
		`SELECT id, report_type, tone, days_mask, hour, minute, notes, active, last_fired_at, created_at
		 FROM schedules
		 ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedules: %w", err)
	}
	defer rows.Close()

	var schedules []*models.Schedule
	for rows.Next() {
		sched, err := scanPgSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, sched)
	}

	return schedules, rows.Err()
}

// scanPgSchedule 从查询结果扫描一条定时任务记录
func scanPgSchedule(rows pgx.Rows) (*models.Schedule, error) {
	var (
		sched      models.Schedule
		reportType string
		tone       string
		daysMask   int
		lastFired  *time.Time
	)

	err := rows.Scan(
		&sched.ID,
		&reportType,
		&tone,
		&daysMask,
		&sched.Time.Hour,
		&sched.Time.Minute,
		&sched.Notes,
		&sched.Active,
		&lastFired,
		&sched.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan schedule: %w", err)
	}

	sched.ReportType = models.ReportType(reportType)
	sched.Tone = models.Tone(tone)
	sched.Days = models.DaySet(daysMask)
	sched.LastFiredAt = lastFired

	return &sched, nil
}

// getSchedule 读取单条定时任务
func (s *PostgresStore) getSchedule(id int64) (*models.Schedule, error) {
	rows, err := s.pool.Query(context.Background(),
		`SELECT id, report_type, tone, days_mask, hour, minute, notes, active, last_fired_at, created_at
		 FROM schedules
		 WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ErrNotFound
	}
	return scanPgSchedule(rows)
}

// DeleteSchedule 删除定时任务
func (s *PostgresStore) DeleteSchedule(id int64) error {
	tag, err := s.pool.Exec(context.Background(), `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ToggleSchedule 翻转激活状态并返回更新后的记录
func (s *PostgresStore) ToggleSchedule(id int64) (*models.Schedule, error) {
	tag, err := s.pool.Exec(context.Background(), `UPDATE schedules SET active = NOT active WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to toggle schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return s.getSchedule(id)
}

// UpdateLastFired 更新最近一次触发时间（调度器内部使用）
func (s *PostgresStore) UpdateLastFired(id int64, firedAt time.Time) error {
	tag, err := s.pool.Exec(context.Background(),
		`UPDATE schedules SET last_fired_at = $1 WHERE id = $2`, firedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update last fired: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveSample 追加一条活动采样记录
func (s *PostgresStore) SaveSample(sample *models.ActivitySample) error {
	err := s.pool.QueryRow(context.Background(),
		`INSERT INTO activity_samples (timestamp, app_identifier, duration_seconds)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		sample.Timestamp, sample.AppIdentifier, sample.DurationSeconds,
	).Scan(&sample.ID)
	if err != nil {
		return fmt.Errorf("failed to insert sample: %w", err)
	}
	return nil
}

// GetSamples 获取指定时间范围内的采样记录，按时间升序
func (s *PostgresStore) GetSamples(start, end time.Time) ([]*models.ActivitySample, error) {
	rows, err := s.pool.Query(context.Background(),
		`SELECT id, timestamp, app_identifier, duration_seconds
		 FROM activity_samples
		 WHERE timestamp >= $1 AND timestamp < $2
		 ORDER BY timestamp ASC`, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	var samples []*models.ActivitySample
	for rows.Next() {
		sample := &models.ActivitySample{}
		err := rows.Scan(
			&sample.ID,
			&sample.Timestamp,
			&sample.AppIdentifier,
			&sample.DurationSeconds,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		samples = append(samples, sample)
	}

	return samples, rows.Err()
}
