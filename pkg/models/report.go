package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// ReportType 报告类型
type ReportType string

const (
	ReportTypeDaily       ReportType = "daily"        // 日报
	ReportTypeWeekly      ReportType = "weekly"       // 周报
	ReportTypeSocialMedia ReportType = "social_media" // 社交媒体
)

// Valid 检查报告类型是否合法
func (t ReportType) Valid() bool {
	switch t {
	case ReportTypeDaily, ReportTypeWeekly, ReportTypeSocialMedia:
		return true
	}
	return false
}

// Title 返回用于邮件主题等场景的展示名称（如 "Social Media"）
func (t ReportType) Title() string {
	switch t {
	case ReportTypeDaily:
		return "Daily"
	case ReportTypeWeekly:
		return "Weekly"
	case ReportTypeSocialMedia:
		return "Social Media"
	}
	return string(t)
}

// Tone 报告语气
type Tone string

const (
	ToneProfessional Tone = "professional" // 正式
	ToneCasual       Tone = "casual"       // 轻松
	ToneConcise      Tone = "concise"      // 简洁
)

// Valid 检查语气是否合法
func (t Tone) Valid() bool {
	switch t {
	case ToneProfessional, ToneCasual, ToneConcise:
		return true
	}
	return false
}

// DaySet 星期集合，位掩码表示
// 第 i 位对应星期索引 i（0=周一, ..., 6=周日）
type DaySet uint8

// NewDaySet 从星期索引数组构造 DaySet
// 索引超出 0-6 范围时返回 ValidationError
func NewDaySet(days []int) (DaySet, error) {
	var ds DaySet
	for _, d := range days {
		if d < 0 || d > 6 {
			return 0, &ValidationError{Field: "days", Reason: fmt.Sprintf("weekday index %d out of range 0-6", d)}
		}
		ds |= 1 << uint(d)
	}
	return ds, nil
}

// Has 检查集合中是否包含指定星期索引
func (ds DaySet) Has(day int) bool {
	if day < 0 || day > 6 {
		return false
	}
	return ds&(1<<uint(day)) != 0
}

// Empty 检查集合是否为空
func (ds DaySet) Empty() bool {
	return ds == 0
}

// Days 返回升序排列的星期索引数组
func (ds DaySet) Days() []int {
	days := make([]int, 0, 7)
	for d := 0; d <= 6; d++ {
		if ds.Has(d) {
			days = append(days, d)
		}
	}
	return days
}

// MarshalJSON 序列化为升序索引数组，如 [0,1,2,3,4]
func (ds DaySet) MarshalJSON() ([]byte, error) {
	return json.Marshal(ds.Days())
}

// UnmarshalJSON 从索引数组反序列化
func (ds *DaySet) UnmarshalJSON(data []byte) error {
	var days []int
	if err := json.Unmarshal(data, &days); err != nil {
		return err
	}
	parsed, err := NewDaySet(days)
	if err != nil {
		return err
	}
	*ds = parsed
	return nil
}

// WeekdayIndex 将 Go 的 time.Weekday（0=周日）转换为本系统的星期索引（0=周一）
func WeekdayIndex(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

// TimeOfDay 一天中的时刻（小时+分钟），不含时区信息
// 统一按进程本地时区解释
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay 解析 "HH:MM" 格式的时刻
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, &ValidationError{Field: "time", Reason: fmt.Sprintf("invalid time %q, expected HH:MM", s)}
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// String 格式化为 "HH:MM"
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Matches 检查给定时间是否精确命中该时刻（分钟精度）
func (t TimeOfDay) Matches(now time.Time) bool {
	return now.Hour() == t.Hour && now.Minute() == t.Minute
}

// MarshalJSON 序列化为 "HH:MM" 字符串
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON 从 "HH:MM" 字符串反序列化
func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ValidationError 输入校验错误
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Schedule 定时报告任务
type Schedule struct {
	ID          int64      `json:"id" db:"id"`
	ReportType  ReportType `json:"report_type" db:"report_type"`
	Tone        Tone       `json:"tone" db:"tone"`
	Days        DaySet     `json:"days" db:"days_mask"`
	Time        TimeOfDay  `json:"time" db:"-"`
	Notes       string     `json:"notes" db:"notes"`
	Active      bool       `json:"active" db:"active"`
	LastFiredAt *time.Time `json:"last_fired_at,omitempty" db:"last_fired_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// ScheduleInput 创建定时任务的输入
type ScheduleInput struct {
	ReportType ReportType `json:"report_type"`
	Tone       Tone       `json:"tone"`
	Days       []int      `json:"days"`
	Time       string     `json:"time"`
	Notes      string     `json:"notes"`
}

// Validate 校验输入并返回解析后的星期集合和时刻
// 约束：days 非空且索引合法，time 为 HH:MM，report_type/tone 为已知枚举值
func (in *ScheduleInput) Validate() (DaySet, TimeOfDay, error) {
	if !in.ReportType.Valid() {
		return 0, TimeOfDay{}, &ValidationError{Field: "report_type", Reason: fmt.Sprintf("unknown report type %q", in.ReportType)}
	}
	if !in.Tone.Valid() {
		return 0, TimeOfDay{}, &ValidationError{Field: "tone", Reason: fmt.Sprintf("unknown tone %q", in.Tone)}
	}
	if len(in.Days) == 0 {
		return 0, TimeOfDay{}, &ValidationError{Field: "days", Reason: "at least one day is required"}
	}
	days, err := NewDaySet(in.Days)
	if err != nil {
		return 0, TimeOfDay{}, err
	}
	tod, err := ParseTimeOfDay(in.Time)
	if err != nil {
		return 0, TimeOfDay{}, err
	}
	return days, tod, nil
}

// ActivitySample 活动采样记录
// 一次采样将整个采样间隔归属到当时的前台应用，记录后不可变
type ActivitySample struct {
	ID              int64     `json:"id" db:"id"`
	Timestamp       time.Time `json:"timestamp" db:"timestamp"`
	AppIdentifier   string    `json:"app_identifier" db:"app_identifier"`
	DurationSeconds int       `json:"duration_seconds" db:"duration_seconds"`
}

// AppUsage 单个应用的累计使用时长
type AppUsage struct {
	App     string `json:"app"`
	Seconds int    `json:"seconds"`
}

// ActivitySummary 当日活动汇总（派生数据，不持久化）
type ActivitySummary struct {
	Date                string     `json:"date"`
	TopApps             []AppUsage `json:"top_apps"`
	TotalTrackedSeconds int        `json:"total_tracked_seconds"`
}

// TopAppsLine 格式化 top_apps 为提示词用的一行文本，如 "Safari (32 min), Xcode (18 min)"
func (s *ActivitySummary) TopAppsLine() string {
	if len(s.TopApps) == 0 {
		return "No activity tracked yet"
	}
	line := ""
	for i, a := range s.TopApps {
		if i > 0 {
			line += ", "
		}
		line += fmt.Sprintf("%s (%d min)", a.App, a.Seconds/60)
	}
	return line
}

// MonitorStatus 活动监控器状态
type MonitorStatus struct {
	IsRunning           bool      `json:"is_running"`
	PollIntervalSeconds int       `json:"poll_interval_seconds,omitempty"`
	StartedAt           time.Time `json:"started_at,omitempty"`
}

// GenerationRequest 报告生成请求
type GenerationRequest struct {
	ReportType      ReportType `json:"report_type"`
	Tone            Tone       `json:"tone"`
	AdditionalNotes string     `json:"additional_notes"`
}

// Validate 校验生成请求
func (r *GenerationRequest) Validate() error {
	if !r.ReportType.Valid() {
		return &ValidationError{Field: "report_type", Reason: fmt.Sprintf("unknown report type %q", r.ReportType)}
	}
	if r.Tone == "" {
		r.Tone = ToneProfessional
	}
	if !r.Tone.Valid() {
		return &ValidationError{Field: "tone", Reason: fmt.Sprintf("unknown tone %q", r.Tone)}
	}
	return nil
}

// GeneratedReport 生成的报告
type GeneratedReport struct {
	ReportType       ReportType `json:"report_type"`
	Content          string     `json:"content"`
	GeneratedAt      time.Time  `json:"generated_at"`
	BasedOnTemplates []string   `json:"based_on_templates"`
}

// UploadedTemplate 上传并解析完成的报告模板
type UploadedTemplate struct {
	Filename       string    `json:"filename"`
	FileType       string    `json:"file_type"`
	ContentPreview string    `json:"content_preview"`
	UploadedAt     time.Time `json:"uploaded_at"`
}

// TemplateInfo 模板列表项
type TemplateInfo struct {
	Name      string `json:"name"`
	Preview   string `json:"preview"`
	SizeChars int64  `json:"size_chars"`
}
