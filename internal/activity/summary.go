package activity

import (
	"sort"
	"time"

	"reportbot/pkg/models"
)

// TopN 汇总中保留的应用数量上限
const TopN = 5

// DayRange 返回给定时间所在自然日的 [起点, 终点) 区间（本地时区）
func DayRange(day time.Time) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return start, start.Add(24 * time.Hour)
}

// Summarize 将采样记录汇总为指定日期的活动摘要
// 纯函数：过滤到自然日、按应用累加时长、按时长降序排序（时长相同按应用名升序，
// 保证结果确定），截断到前 TopN 个应用；总时长统计该日全部采样，不受截断影响
func Summarize(samples []*models.ActivitySample, day time.Time) models.ActivitySummary {
	dayStart, dayEnd := DayRange(day)

	totals := make(map[string]int)
	total := 0
	for _, s := range samples {
		if s.Timestamp.Before(dayStart) || !s.Timestamp.Before(dayEnd) {
			continue
		}
		totals[s.AppIdentifier] += s.DurationSeconds
		total += s.DurationSeconds
	}

	apps := make([]models.AppUsage, 0, len(totals))
	for app, seconds := range totals {
		apps = append(apps, models.AppUsage{App: app, Seconds: seconds})
	}

	sort.Slice(apps, func(i, j int) bool {
		if apps[i].Seconds != apps[j].Seconds {
			return apps[i].Seconds > apps[j].Seconds
		}
		return apps[i].App < apps[j].App
	})

	if len(apps) > TopN {
		apps = apps[:TopN]
	}

	return models.ActivitySummary{
		Date:                dayStart.Format("2006-01-02"),
		TopApps:             apps,
		TotalTrackedSeconds: total,
	}
}
