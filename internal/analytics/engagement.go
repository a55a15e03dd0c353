package analytics

import (
	"time"
)

// activityWindow is the trailing window behind ActiveLast7Days.
const activityWindow = 7 * 24 * time.Hour

// EngagementMetrics describes how much the registered population actually
// participates. Two averages are exposed side by side because they answer
// different questions and are easy to conflate:
//
//   - AvgPerRegistered divides by every registered user in the filtered
//     role, including accounts with zero activity.
//   - AvgPerActive divides only by users who produced at least one message.
//
// AvgPerRegistered <= AvgPerActive always holds (the active denominator is
// never larger).
//
// Returning users are reported under both definitions in circulation:
// ReturningBySessions (>=2 distinct sessions, the primary figure) and
// ReturningByDates (>=2 distinct local calendar dates).
type EngagementMetrics struct {
	RegisteredUsers   int            `json:"registered_users"`
	ActiveUsers       int            `json:"active_users"`
	TotalMessages     int            `json:"total_messages"`
	MessagesPerUser   map[string]int `json:"messages_per_user"`
	AvgPerRegistered  float64        `json:"avg_messages_per_registered_user"`
	AvgPerActive      float64        `json:"avg_messages_per_active_user"`
	ParticipationRate float64        `json:"participation_rate"` // percent, exact

	ActiveLast7Days     int `json:"active_last_7_days"`
	ReturningBySessions int `json:"returning_users_by_sessions"`
	ReturningByDates    int `json:"returning_users_by_dates"`
}

// Engagement computes participation metrics for one role (empty role means
// everyone, unknown owners included). The 7-day window is anchored at the
// injected now, never at the wall clock; comparisons are instant-based so
// the anchor's zone does not matter.
func Engagement(t Table, role string, now time.Time) EngagementMetrics {
	m := EngagementMetrics{MessagesPerUser: make(map[string]int)}

	for _, p := range t.Profiles {
		if role == "" || p.Role == role {
			m.RegisteredUsers++
		}
	}

	rows := FilterRole(t.Rows, role)
	cutoff := now.Add(-activityWindow)
	recent := make(map[string]struct{})
	sessionsPerUser := make(map[string]map[string]struct{})
	datesPerUser := make(map[string]map[string]struct{})
	for _, r := range rows {
		m.TotalMessages++
		m.MessagesPerUser[r.UserID]++
		if r.LocalTime.After(cutoff) {
			recent[r.UserID] = struct{}{}
		}
		if s := sessionsPerUser[r.UserID]; s == nil {
			sessionsPerUser[r.UserID] = map[string]struct{}{r.SessionID: {}}
		} else {
			s[r.SessionID] = struct{}{}
		}
		date := r.LocalTime.Format("2006-01-02")
		if d := datesPerUser[r.UserID]; d == nil {
			datesPerUser[r.UserID] = map[string]struct{}{date: {}}
		} else {
			d[date] = struct{}{}
		}
	}

	m.ActiveUsers = len(m.MessagesPerUser)
	m.ActiveLast7Days = len(recent)
	for _, s := range sessionsPerUser {
		if len(s) >= 2 {
			m.ReturningBySessions++
		}
	}
	for _, d := range datesPerUser {
		if len(d) >= 2 {
			m.ReturningByDates++
		}
	}

	m.AvgPerRegistered = ratio(m.TotalMessages, m.RegisteredUsers)
	m.AvgPerActive = ratio(m.TotalMessages, m.ActiveUsers)
	m.ParticipationRate = ratio(m.ActiveUsers, m.RegisteredUsers) * 100
	return m
}

// ratio divides a by b, resolving a zero denominator to 0 instead of NaN.
func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}
