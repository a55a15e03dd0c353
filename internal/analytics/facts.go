// Package analytics implements the read-side aggregation pipeline behind the
// dashboard. It reshapes raw event rows (profiles, sessions, messages) into a
// denormalized fact table and derives metric groups from it: registration,
// engagement, mode distribution, feedback, and temporal usage.
//
// Design rules the whole package follows:
//
//   - Calculators are pure functions of the fact table. They never touch the
//     database, never read the wall clock (window-relative metrics take an
//     injected anchor), and never mutate their input.
//   - Empty input is not an error: every calculator returns a well-formed
//     zero-valued record, and every ratio with a zero denominator resolves
//     to 0 rather than NaN.
//   - Numeric results stay exact here; display formatting (fixed decimals,
//     percent signs) happens only in the report assembler.
package analytics

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/unilearn/socratic-chat-backend/internal/domain"
)

// FactRow is one denormalized message joined with its session and owner
// profile. It is rebuilt from scratch on every aggregation request and has
// no independent lifecycle.
type FactRow struct {
	MessageID    string
	SessionID    string
	UserID       string
	Role         string // owner's profile role; RoleUnknown when unresolved
	Speaker      string // "user" or "assistant"
	Mode         string // session dialogue mode
	Body         string
	CreatedAt    time.Time // storage timestamp (UTC)
	LocalTime    time.Time // CreatedAt in the reporting zone
	Rating       *int      // nil, 0, or 1; assistant rows only
	FeedbackText string
}

// Table is the unified dataset the calculators consume. Profiles ride along
// so registration counts and per-registered-user denominators can include
// accounts that never sent a message. Excluded counts rows dropped during
// ingestion (missing keys, orphaned sessions); they are skipped, not fatal.
type Table struct {
	Rows     []FactRow
	Profiles []domain.UserProfile
	Excluded int
}

// BuildFactTable left-joins messages to sessions on session id, then the
// result to profiles on owner id, normalizing every timestamp into loc.
//
// Join semantics:
//   - A message whose session id matches no session is dropped and counted
//     in Table.Excluded (a message cannot exist without a session, but bad
//     rows must not crash the pipeline).
//   - A session whose owner matches no profile keeps its rows with role
//     "unknown", so registration-agnostic metrics stay accurate.
//   - A message missing its own id or session id is counted as malformed
//     and excluded.
//
// Timestamps are ingested as UTC instants; LocalTime is the same instant
// rendered in loc. Re-running the builder on identical input yields an
// identical table: the conversion preserves the instant, so deriving
// LocalTime again never double-shifts. A nil loc falls back to UTC.
//
// Row order follows the input message order; callers needing a different
// order must sort explicitly.
func BuildFactTable(profiles []domain.UserProfile, sessions []domain.ChatSession, messages []domain.Message, loc *time.Location) Table {
	if loc == nil {
		loc = time.UTC
	}

	sessByID := make(map[string]domain.ChatSession, len(sessions))
	for _, s := range sessions {
		if s.ID == "" {
			continue
		}
		sessByID[s.ID] = s
	}
	roleByUser := make(map[string]string, len(profiles))
	for _, p := range profiles {
		if p.ID == "" {
			continue
		}
		roleByUser[p.ID] = p.Role
	}

	t := Table{
		Rows:     make([]FactRow, 0, len(messages)),
		Profiles: profiles,
	}
	for _, m := range messages {
		if m.ID == "" || m.SessionID == "" {
			t.Excluded++
			log.Debug().Str("message_id", m.ID).Msg("fact table: malformed message row excluded")
			continue
		}
		sess, ok := sessByID[m.SessionID]
		if !ok {
			t.Excluded++
			log.Debug().
				Str("message_id", m.ID).
				Str("session_id", m.SessionID).
				Msg("fact table: message without session excluded")
			continue
		}
		role, ok := roleByUser[sess.UserID]
		if !ok {
			role = domain.RoleUnknown
		}
		t.Rows = append(t.Rows, FactRow{
			MessageID:    m.ID,
			SessionID:    m.SessionID,
			UserID:       sess.UserID,
			Role:         role,
			Speaker:      m.Speaker,
			Mode:         sess.Mode,
			Body:         m.Body,
			CreatedAt:    m.CreatedAt,
			LocalTime:    normalizeLocal(m.CreatedAt, loc),
			Rating:       m.FeedbackRating,
			FeedbackText: derefString(m.FeedbackText),
		})
	}
	return t
}

// FilterRole returns the rows whose owner holds the given role. An empty
// role means no filtering. The result shares backing rows with the input
// but is a fresh slice; calculators never mutate rows either way.
func FilterRole(rows []FactRow, role string) []FactRow {
	if role == "" {
		return rows
	}
	out := make([]FactRow, 0, len(rows))
	for _, r := range rows {
		if r.Role == role {
			out = append(out, r)
		}
	}
	return out
}

// normalizeLocal renders t in loc. Zero-value times pass through unchanged
// so they never fabricate a date bucket. time.Time.In preserves the instant,
// which makes the derivation idempotent by construction.
func normalizeLocal(t time.Time, loc *time.Location) time.Time {
	if t.IsZero() {
		return t
	}
	return t.In(loc)
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
