package analytics

import (
	"sort"
	"time"
)

// DailyUsage is one local calendar date's activity.
type DailyUsage struct {
	Date        string `json:"date"` // YYYY-MM-DD, local
	UniqueUsers int    `json:"unique_users"`
	Messages    int    `json:"messages"`
}

// WeekdayUsage is one day-of-week bucket, Monday first.
type WeekdayUsage struct {
	Day      string `json:"day"`
	Messages int    `json:"messages"`
}

// TemporalMetrics carries the charting series. Hourly always holds exactly
// 24 buckets and Weekdays exactly 7, zero-filled: a quiet hour is an
// explicit zero, never a missing key the chart has to guess about.
type TemporalMetrics struct {
	Daily    []DailyUsage   `json:"daily"` // sorted by date ascending
	Hourly   [24]int        `json:"hourly"`
	Weekdays []WeekdayUsage `json:"weekdays"`
}

// weekdayOrder lists buckets Monday-first, matching how the dashboard
// charts a week.
var weekdayOrder = [7]time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// Temporal buckets messages by local date, hour of day, and day of week.
func Temporal(rows []FactRow) TemporalMetrics {
	var m TemporalMetrics

	msgsByDate := make(map[string]int)
	usersByDate := make(map[string]map[string]struct{})
	byWeekday := make(map[time.Weekday]int)
	for _, r := range rows {
		date := r.LocalTime.Format("2006-01-02")
		msgsByDate[date]++
		if u := usersByDate[date]; u == nil {
			usersByDate[date] = map[string]struct{}{r.UserID: {}}
		} else {
			u[r.UserID] = struct{}{}
		}
		m.Hourly[r.LocalTime.Hour()]++
		byWeekday[r.LocalTime.Weekday()]++
	}

	m.Daily = make([]DailyUsage, 0, len(msgsByDate))
	for date, n := range msgsByDate {
		m.Daily = append(m.Daily, DailyUsage{
			Date:        date,
			UniqueUsers: len(usersByDate[date]),
			Messages:    n,
		})
	}
	sort.Slice(m.Daily, func(i, j int) bool { return m.Daily[i].Date < m.Daily[j].Date })

	m.Weekdays = make([]WeekdayUsage, 7)
	for i, wd := range weekdayOrder {
		m.Weekdays[i] = WeekdayUsage{Day: wd.String(), Messages: byWeekday[wd]}
	}
	return m
}
