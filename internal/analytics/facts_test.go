package analytics

import (
	"reflect"
	"testing"
	"time"

	"github.com/unilearn/socratic-chat-backend/internal/domain"
)

func profile(id, role string) domain.UserProfile {
	return domain.UserProfile{ID: id, Role: role, RegisteredAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func session(id, userID, mode string) domain.ChatSession {
	return domain.ChatSession{ID: id, UserID: userID, Mode: mode, StartedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func message(id, sessID, speaker string, at time.Time) domain.Message {
	return domain.Message{ID: id, SessionID: sessID, Speaker: speaker, Body: "m", CreatedAt: at}
}

func rated(m domain.Message, rating int, text string) domain.Message {
	m.FeedbackRating = &rating
	if text != "" {
		m.FeedbackText = &text
	}
	return m
}

func TestBuildFactTableJoins(t *testing.T) {
	at := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	profiles := []domain.UserProfile{profile("u1", domain.RoleStudent)}
	sessions := []domain.ChatSession{
		session("s1", "u1", domain.ModeSocratic),
		session("s2", "ghost", domain.ModeDirect),
	}
	messages := []domain.Message{
		message("m1", "s1", domain.SpeakerUser, at),
		message("m2", "s2", domain.SpeakerUser, at),
		message("m3", "missing-session", domain.SpeakerUser, at),
		message("", "s1", domain.SpeakerUser, at),
	}

	tab := BuildFactTable(profiles, sessions, messages, time.UTC)

	if len(tab.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(tab.Rows))
	}
	if tab.Excluded != 2 {
		t.Fatalf("excluded = %d, want 2 (orphan + malformed)", tab.Excluded)
	}
	if tab.Rows[0].Role != domain.RoleStudent {
		t.Errorf("joined role = %q, want student", tab.Rows[0].Role)
	}
	if tab.Rows[1].Role != domain.RoleUnknown {
		t.Errorf("unknown owner role = %q, want unknown", tab.Rows[1].Role)
	}
	if tab.Rows[1].UserID != "ghost" {
		t.Errorf("unknown owner retained user id %q, want ghost", tab.Rows[1].UserID)
	}
}

func TestBuildFactTableLocalTimeShift(t *testing.T) {
	// 23:30 UTC lands on the next day in UTC+1: date bucket shifts, hour
	// bucket wraps to 0.
	zone := time.FixedZone("UTC+1", 3600)
	at := time.Date(2024, 1, 1, 23, 30, 0, 0, time.UTC)
	tab := BuildFactTable(
		[]domain.UserProfile{profile("u1", domain.RoleStudent)},
		[]domain.ChatSession{session("s1", "u1", domain.ModeSocratic)},
		[]domain.Message{message("m1", "s1", domain.SpeakerUser, at)},
		zone,
	)
	lt := tab.Rows[0].LocalTime
	if got := lt.Format("2006-01-02"); got != "2024-01-02" {
		t.Errorf("local date = %s, want 2024-01-02", got)
	}
	if lt.Hour() != 0 {
		t.Errorf("local hour = %d, want 0", lt.Hour())
	}
	if !lt.Equal(at) {
		t.Errorf("conversion changed the instant: %v vs %v", lt, at)
	}
}

func TestBuildFactTableIdempotent(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Zurich")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}
	profiles := []domain.UserProfile{profile("u1", domain.RoleStudent), profile("u2", domain.RoleTester)}
	sessions := []domain.ChatSession{session("s1", "u1", domain.ModeSocratic), session("s2", "u2", domain.ModeDirect)}
	messages := []domain.Message{
		message("m1", "s1", domain.SpeakerUser, time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)),
		rated(message("m2", "s1", domain.SpeakerAssistant, time.Date(2024, 6, 1, 8, 0, 5, 0, time.UTC)), 1, "good"),
		message("m3", "s2", domain.SpeakerUser, time.Date(2024, 6, 2, 22, 45, 0, 0, time.UTC)),
	}

	first := BuildFactTable(profiles, sessions, messages, loc)
	second := BuildFactTable(profiles, sessions, messages, loc)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("two builds over identical input differ")
	}

	// Feeding already-local timestamps back through must not double-shift.
	relocated := make([]domain.Message, len(messages))
	copy(relocated, messages)
	for i := range relocated {
		relocated[i].CreatedAt = relocated[i].CreatedAt.In(loc)
	}
	third := BuildFactTable(profiles, sessions, relocated, loc)
	for i := range first.Rows {
		if !first.Rows[i].LocalTime.Equal(third.Rows[i].LocalTime) {
			t.Errorf("row %d local time shifted on re-derivation: %v vs %v",
				i, first.Rows[i].LocalTime, third.Rows[i].LocalTime)
		}
	}
}

func TestBuildFactTableEmptyInputs(t *testing.T) {
	tab := BuildFactTable(nil, nil, nil, nil)
	if len(tab.Rows) != 0 || tab.Excluded != 0 {
		t.Fatalf("empty input produced rows=%d excluded=%d", len(tab.Rows), tab.Excluded)
	}
}

func TestFilterRole(t *testing.T) {
	rows := []FactRow{
		{MessageID: "m1", Role: domain.RoleStudent},
		{MessageID: "m2", Role: domain.RoleTester},
		{MessageID: "m3", Role: domain.RoleStudent},
	}
	got := FilterRole(rows, domain.RoleStudent)
	if len(got) != 2 {
		t.Fatalf("filtered = %d rows, want 2", len(got))
	}
	if all := FilterRole(rows, ""); len(all) != 3 {
		t.Fatalf("empty role filtered = %d rows, want 3", len(all))
	}
}
