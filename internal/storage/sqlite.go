package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"reportbot/pkg/models"

	_ "modernc.org/sqlite"
)

// SQLiteStore 基于 SQLite 的存储实现
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore 创建 SQLite 存储
func NewSQLiteStore(dataDir string) (*SQLiteStore, error) {
	// 确保数据目录存在
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "reportbot.db")

	// 注意：modernc.org/sqlite 的驱动名称是 "sqlite" 而不是 "sqlite3"
	dsn := "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

// initSchema 初始化数据库表结构
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schedules (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		report_type TEXT NOT NULL,
		tone TEXT NOT NULL,
		days_mask INTEGER NOT NULL,
		hour INTEGER NOT NULL,
		minute INTEGER NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		active BOOLEAN NOT NULL DEFAULT 1,
		last_fired_at DATETIME,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS activity_samples (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		app_identifier TEXT NOT NULL,
		duration_seconds INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_samples_timestamp ON activity_samples(timestamp);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close 关闭数据库
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateSchedule 创建定时任务
// 校验输入，分配自增 id，active 默认为 true
func (s *SQLiteStore) CreateSchedule(in *models.ScheduleInput) (*models.Schedule, error) {
	days, tod, err := in.Validate()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	query := `
		INSERT INTO schedules (report_type, tone, days_mask, hour, minute, notes, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?)
	`

	result, err := s.db.Exec(query,
		string(in.ReportType),
		string(in.Tone),
		int(days),
		tod.Hour,
		tod.Minute,
		in.Notes,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert schedule: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get insert id: %w", err)
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
func (s *SQLiteStore) ListSchedules() ([]*models.Schedule, error) {
	query := `
		SELECT id, report_type, tone, days_mask, hour, minute, notes, active, last_fired_at, created_at
		FROM schedules
		ORDER BY id ASC
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedules: %w", err)
	}
	defer rows.Close()

	var schedules []*models.Schedule
	for rows.Next() {
		sched, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, sched)
	}

	return schedules, rows.Err()
}

// scanSchedule 从查询结果扫描一条定时任务记录
func scanSchedule(rows *sql.Rows) (*models.Schedule, error) {
	var (
		sched      models.Schedule
		reportType string
		tone       string
		daysMask   int
		lastFired  sql.NullTime
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
	if lastFired.Valid {
		t := lastFired.Time
		sched.LastFiredAt = &t
	}

	return &sched, nil
}

// getSchedule 读取单条定时任务
func (s *SQLiteStore) getSchedule(id int64) (*models.Schedule, error) {
	query := `
		SELECT id, report_type, tone, days_mask, hour, minute, notes, active, last_fired_at, created_at
		FROM schedules
		WHERE id = ?
	`

	rows, err := s.db.Query(query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ErrNotFound
	}
	return scanSchedule(rows)
}

// DeleteSchedule 删除定时任务
// id 不存在时返回 ErrNotFound（重复删除同样报错）
func (s *SQLiteStore) DeleteSchedule(id int64) error {
	result, err := s.db.Exec(`DELETE FROM schedules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ToggleSchedule 翻转激活状态并返回更新后的记录
func (s *SQLiteStore) ToggleSchedule(id int64) (*models.Schedule, error) {
	result, err := s.db.Exec(`UPDATE schedules SET active = NOT active WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to toggle schedule: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}

	return s.getSchedule(id)
}

// UpdateLastFired 更新最近一次触发时间（调度器内部使用）
func (s *SQLiteStore) UpdateLastFired(id int64, firedAt time.Time) error {
	result, err := s.db.Exec(`UPDATE schedules SET last_fired_at = ? WHERE id = ?`, firedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update last fired: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveSample 追加一条活动采样记录
func (s *SQLiteStore) SaveSample(sample *models.ActivitySample) error {
	query := `
		INSERT INTO activity_samples (timestamp, app_identifier, duration_seconds)
		VALUES (?, ?, ?)
	`

	result, err := s.db.Exec(query,
		sample.Timestamp,
		sample.AppIdentifier,
		sample.DurationSeconds,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sample: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert id: %w", err)
	}

	sample.ID = id
	return nil
}

// GetSamples 获取指定时间范围内的采样记录，按时间升序
func (s *SQLiteStore) GetSamples(start, end time.Time) ([]*models.ActivitySample, error) {
	query := `
		SELECT id, timestamp, app_identifier, duration_seconds
		FROM activity_samples
		WHERE timestamp >= ? AND timestamp < ?
		ORDER BY timestamp ASC
	`

	rows, err := s.db.Query(query, start, end)
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
