package analytics

import (
	"math"
	"sort"
)

// EqualUsage is the per-user preference sentinel reported when a user's
// message counts tie across their most-used modes. It is deliberately not a
// mode name, so downstream consumers never mistake a tie for a choice.
const EqualUsage = "Equal Usage"

// ModeShare is one mode's slice of a distribution. Pct is rounded to two
// decimals; across the modes present the slices sum to 100 within rounding.
type ModeShare struct {
	Mode  string  `json:"mode"`
	Count int     `json:"count"`
	Pct   float64 `json:"pct"`
}

// ModeDistributionMetrics offers three independent views over the same rows:
// message volume per mode, one-vote-per-session share (the session's vote is
// the mode of its earliest message), and each user's preferred mode.
type ModeDistributionMetrics struct {
	MessageShares []ModeShare    `json:"message_shares"`
	SessionShares []ModeShare    `json:"session_shares"`
	Preferences   map[string]int `json:"preferences"` // mode or EqualUsage -> user count
}

// ModeDistribution computes all three mode views. Share slices are sorted by
// descending count, ties broken by mode name, so output is deterministic.
func ModeDistribution(rows []FactRow) ModeDistributionMetrics {
	msgCounts := make(map[string]int)
	perUser := make(map[string]map[string]int)

	// first message per session decides the session's vote
	type vote struct {
		mode  string
		at    int64
		msgID string
	}
	firstBySession := make(map[string]vote)

	for _, r := range rows {
		msgCounts[r.Mode]++

		if u := perUser[r.UserID]; u == nil {
			perUser[r.UserID] = map[string]int{r.Mode: 1}
		} else {
			u[r.Mode]++
		}

		v := vote{mode: r.Mode, at: r.LocalTime.UnixNano(), msgID: r.MessageID}
		cur, seen := firstBySession[r.SessionID]
		if !seen || v.at < cur.at || (v.at == cur.at && v.msgID < cur.msgID) {
			firstBySession[r.SessionID] = v
		}
	}

	sessCounts := make(map[string]int, len(msgCounts))
	for _, v := range firstBySession {
		sessCounts[v.mode]++
	}

	prefs := make(map[string]int)
	for _, counts := range perUser {
		prefs[preferredMode(counts)]++
	}

	return ModeDistributionMetrics{
		MessageShares: shares(msgCounts),
		SessionShares: shares(sessCounts),
		Preferences:   prefs,
	}
}

// preferredMode picks the mode with strictly more messages; any tie at the
// maximum collapses to EqualUsage.
func preferredMode(counts map[string]int) string {
	best, bestN, tied := "", -1, false
	for mode, n := range counts {
		switch {
		case n > bestN:
			best, bestN, tied = mode, n, false
		case n == bestN:
			tied = true
		}
	}
	if tied {
		return EqualUsage
	}
	return best
}

func shares(counts map[string]int) []ModeShare {
	total := 0
	for _, n := range counts {
		total += n
	}
	out := make([]ModeShare, 0, len(counts))
	for mode, n := range counts {
		out = append(out, ModeShare{Mode: mode, Count: n, Pct: round2(ratio(n, total) * 100)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Mode < out[j].Mode
	})
	return out
}

func round2(x float64) float64 { return math.Round(x*100) / 100 }
