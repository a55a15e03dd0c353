package analytics

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"
)

// Snapshot is the assembled output of one aggregation run: every metric
// group keyed by name, plus the run parameters that produced it. Snapshots
// are immutable once built; a refresh always produces a new one.
type Snapshot struct {
	GeneratedAt  time.Time `json:"generated_at"`
	RoleFilter   string    `json:"role_filter,omitempty"`
	ExcludedRows int       `json:"excluded_rows"`

	Registration RegistrationMetrics     `json:"registration"`
	Engagement   EngagementMetrics       `json:"engagement"`
	Modes        ModeDistributionMetrics `json:"modes"`
	Feedback     FeedbackMetrics         `json:"feedback"`
	Temporal     TemporalMetrics         `json:"temporal"`
}

// Assemble combines independently computed metric groups into one snapshot.
// It adds no derived numbers of its own.
func Assemble(reg RegistrationMetrics, eng EngagementMetrics, modes ModeDistributionMetrics, fb FeedbackMetrics, temp TemporalMetrics, role string, excluded int, now time.Time) Snapshot {
	return Snapshot{
		GeneratedAt:  now,
		RoleFilter:   role,
		ExcludedRows: excluded,
		Registration: reg,
		Engagement:   eng,
		Modes:        modes,
		Feedback:     fb,
		Temporal:     temp,
	}
}

// Aggregate runs the full calculator set over a fact table and assembles
// the result. Role filtering applies to engagement, mode, feedback, and
// temporal metrics; registration always reports the whole population so
// the per-role breakdown keeps its context. now anchors window-relative
// metrics and is recorded as the snapshot's generation time.
func Aggregate(t Table, role string, now time.Time) Snapshot {
	rows := FilterRole(t.Rows, role)
	return Assemble(
		Registration(t.Profiles),
		Engagement(t, role, now),
		ModeDistribution(rows),
		Feedback(rows),
		Temporal(rows),
		role, t.Excluded, now,
	)
}

// SummaryRow is one label/value line of the flattened export projection.
type SummaryRow struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Summary flattens the snapshot into label/value pairs for tabular export.
// This is the only place numbers are formatted: percentages to one decimal,
// ratings and per-user averages to two. Calculators stay exact.
func (s Snapshot) Summary() []SummaryRow {
	rows := []SummaryRow{
		{"Generated At", s.GeneratedAt.Format(time.RFC3339)},
		{"Registered Users", strconv.Itoa(s.Registration.Total)},
	}
	for _, role := range sortedKeys(s.Registration.ByRole) {
		rows = append(rows, SummaryRow{
			fmt.Sprintf("Registered Users (%s)", role),
			strconv.Itoa(s.Registration.ByRole[role]),
		})
	}
	rows = append(rows,
		SummaryRow{"Active Users", strconv.Itoa(s.Engagement.ActiveUsers)},
		SummaryRow{"Total Messages", strconv.Itoa(s.Engagement.TotalMessages)},
		SummaryRow{"Avg Messages per Registered User", fixed2(s.Engagement.AvgPerRegistered)},
		SummaryRow{"Avg Messages per Active User", fixed2(s.Engagement.AvgPerActive)},
		SummaryRow{"Participation Rate", percent1(s.Engagement.ParticipationRate)},
		SummaryRow{"Active Users (Last 7 Days)", strconv.Itoa(s.Engagement.ActiveLast7Days)},
		SummaryRow{"Returning Users", strconv.Itoa(s.Engagement.ReturningBySessions)},
		SummaryRow{"Returning Users (by dates)", strconv.Itoa(s.Engagement.ReturningByDates)},
	)
	for _, sh := range s.Modes.MessageShares {
		rows = append(rows, SummaryRow{
			fmt.Sprintf("%s Mode Messages", sh.Mode),
			fmt.Sprintf("%d (%s)", sh.Count, percent1(sh.Pct)),
		})
	}
	for _, pref := range sortedKeys(s.Modes.Preferences) {
		rows = append(rows, SummaryRow{
			fmt.Sprintf("Users Preferring %s", pref),
			strconv.Itoa(s.Modes.Preferences[pref]),
		})
	}
	rows = append(rows,
		SummaryRow{"Assistant Messages", strconv.Itoa(s.Feedback.TotalAssistant)},
		SummaryRow{"Feedback Received", strconv.Itoa(s.Feedback.TotalFeedback)},
		SummaryRow{"Positive Feedback", strconv.Itoa(s.Feedback.Positive)},
		SummaryRow{"Negative Feedback", strconv.Itoa(s.Feedback.Negative)},
		SummaryRow{"Feedback Rate", percent1(s.Feedback.FeedbackRate)},
		SummaryRow{"Average Rating", fixed2(s.Feedback.AvgRating)},
	)
	if s.ExcludedRows > 0 {
		rows = append(rows, SummaryRow{"Excluded Rows", strconv.Itoa(s.ExcludedRows)})
	}
	return rows
}

// WriteCSV serializes the summary projection as a two-column CSV with a
// header line.
func (s Snapshot) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Metric", "Value"}); err != nil {
		return err
	}
	for _, r := range s.Summary() {
		if err := cw.Write([]string{r.Label, r.Value}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func percent1(x float64) string { return fmt.Sprintf("%.1f%%", x) }
func fixed2(x float64) string   { return fmt.Sprintf("%.2f", x) }

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
