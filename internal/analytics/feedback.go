package analytics

import (
	"github.com/unilearn/socratic-chat-backend/internal/domain"
)

// ModeFeedback is the rated-message summary for one mode.
type ModeFeedback struct {
	Count int     `json:"count"` // rated assistant messages
	Mean  float64 `json:"mean"`  // mean rating over rated messages
}

// FeedbackSplit is the 3-way breakdown of all assistant messages in a mode,
// including the silent majority that never rated anything. Its denominator
// is total assistant messages, not total rated messages, which is why it is
// computed directly rather than derived from ModeFeedback.
type FeedbackSplit struct {
	Positive   int `json:"positive"`
	Negative   int `json:"negative"`
	NoFeedback int `json:"no_feedback"`
}

// FeedbackMetrics summarizes ratings attached to assistant messages.
// Ratings are a 0/1 indicator, so AvgRating doubles as the satisfaction
// proportion among raters.
type FeedbackMetrics struct {
	TotalAssistant int     `json:"total_assistant_messages"`
	TotalFeedback  int     `json:"total_feedback"`
	Positive       int     `json:"positive"`
	Negative       int     `json:"negative"`
	FeedbackRate   float64 `json:"feedback_rate"` // percent of assistant messages rated, exact
	AvgRating      float64 `json:"avg_rating"`

	ByMode      map[string]ModeFeedback  `json:"by_mode"`
	SplitByMode map[string]FeedbackSplit `json:"split_by_mode"`
}

// Feedback computes rating metrics over the assistant rows only. User rows
// never carry ratings (service-enforced) and are ignored here regardless.
// Zero assistant messages yields a zeroed record, not an error.
func Feedback(rows []FactRow) FeedbackMetrics {
	m := FeedbackMetrics{
		ByMode:      make(map[string]ModeFeedback),
		SplitByMode: make(map[string]FeedbackSplit),
	}
	ratingSums := make(map[string]int)
	total := 0

	for _, r := range rows {
		if r.Speaker != domain.SpeakerAssistant {
			continue
		}
		m.TotalAssistant++
		split := m.SplitByMode[r.Mode]
		if r.Rating == nil {
			split.NoFeedback++
			m.SplitByMode[r.Mode] = split
			continue
		}
		m.TotalFeedback++
		if *r.Rating == domain.RatingPositive {
			m.Positive++
			split.Positive++
		} else {
			m.Negative++
			split.Negative++
		}
		m.SplitByMode[r.Mode] = split

		mf := m.ByMode[r.Mode]
		mf.Count++
		m.ByMode[r.Mode] = mf
		ratingSums[r.Mode] += *r.Rating
		total += *r.Rating
	}

	for mode, mf := range m.ByMode {
		mf.Mean = ratio(ratingSums[mode], mf.Count)
		m.ByMode[mode] = mf
	}
	m.FeedbackRate = ratio(m.TotalFeedback, m.TotalAssistant) * 100
	m.AvgRating = ratio(total, m.TotalFeedback)
	return m
}
