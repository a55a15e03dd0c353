package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/unilearn/socratic-chat-backend/internal/dialogue"
	"github.com/unilearn/socratic-chat-backend/internal/domain"
	"github.com/unilearn/socratic-chat-backend/internal/repo"
)

func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("svc_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// fakeEngine records the last call and echoes a canned reply.
type fakeEngine struct {
	lastMode    string
	lastPrompt  string
	lastHistory []dialogue.Turn
	reply       string
	err         error
}

func (f *fakeEngine) Reply(_ context.Context, mode string, history []dialogue.Turn, prompt string) (string, error) {
	f.lastMode, f.lastPrompt, f.lastHistory = mode, prompt, history
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func seedSession(t *testing.T, db *gorm.DB, userID, mode string) *domain.ChatSession {
	t.Helper()
	sess, err := repo.CreateSession(context.Background(), db, userID, mode, "New session")
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}
	return sess
}

func TestAnswer_PersistsPairAndAutoTitles(t *testing.T) {
	db := newServiceDB(t)
	eng := &fakeEngine{reply: "What do you already know about virtue?"}
	svc := &MessageService{DB: db, Engine: eng}
	sess := seedSession(t, db, "u1", domain.ModeSocratic)

	msg, err := svc.Answer(context.Background(), "u1", sess.ID, "tell me about virtue")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if msg.Speaker != domain.SpeakerAssistant || msg.Body != eng.reply {
		t.Fatalf("assistant message = %+v", msg)
	}
	if eng.lastMode != domain.ModeSocratic {
		t.Fatalf("engine mode = %q", eng.lastMode)
	}

	msgs, err := repo.ListMessagesPage(context.Background(), db, sess.ID, 0, 10)
	if err != nil || len(msgs) != 2 {
		t.Fatalf("persisted %d messages, %v", len(msgs), err)
	}
	if msgs[0].Speaker != domain.SpeakerUser || msgs[0].Body != "tell me about virtue" {
		t.Fatalf("user message = %+v", msgs[0])
	}

	got, _ := repo.GetSession(context.Background(), db, sess.ID, "u1")
	if got.Title == "New session" || !strings.Contains(got.Title, "Virtue") {
		t.Fatalf("auto-title = %q", got.Title)
	}
}

func TestAnswer_SecondPromptKeepsTitle(t *testing.T) {
	db := newServiceDB(t)
	eng := &fakeEngine{reply: "ok"}
	svc := &MessageService{DB: db, Engine: eng}
	sess := seedSession(t, db, "u1", domain.ModeDirect)

	if _, err := svc.Answer(context.Background(), "u1", sess.ID, "first question about justice"); err != nil {
		t.Fatalf("Answer 1: %v", err)
	}
	first, _ := repo.GetSession(context.Background(), db, sess.ID, "u1")
	if _, err := svc.Answer(context.Background(), "u1", sess.ID, "completely different topic"); err != nil {
		t.Fatalf("Answer 2: %v", err)
	}
	second, _ := repo.GetSession(context.Background(), db, sess.ID, "u1")
	if first.Title != second.Title {
		t.Fatalf("title changed on second prompt: %q -> %q", first.Title, second.Title)
	}
}

func TestAnswer_PassesHistoryToEngine(t *testing.T) {
	db := newServiceDB(t)
	eng := &fakeEngine{reply: "ok"}
	svc := &MessageService{DB: db, Engine: eng}
	sess := seedSession(t, db, "u1", domain.ModeSocratic)

	if _, err := svc.Answer(context.Background(), "u1", sess.ID, "first"); err != nil {
		t.Fatalf("Answer 1: %v", err)
	}
	if _, err := svc.Answer(context.Background(), "u1", sess.ID, "second"); err != nil {
		t.Fatalf("Answer 2: %v", err)
	}
	if len(eng.lastHistory) != 2 {
		t.Fatalf("history length = %d, want 2 (first exchange)", len(eng.lastHistory))
	}
	if eng.lastHistory[0].Speaker != domain.SpeakerUser || eng.lastHistory[0].Body != "first" {
		t.Fatalf("history[0] = %+v", eng.lastHistory[0])
	}
}

func TestAnswer_Validation(t *testing.T) {
	db := newServiceDB(t)
	svc := &MessageService{DB: db, Engine: &fakeEngine{reply: "ok"}, MaxPromptRunes: 10}
	sess := seedSession(t, db, "u1", domain.ModeSocratic)

	if _, err := svc.Answer(context.Background(), "u1", sess.ID, "   "); !errors.Is(err, ErrEmptyPrompt) {
		t.Fatalf("want ErrEmptyPrompt, got %v", err)
	}
	if _, err := svc.Answer(context.Background(), "u1", sess.ID, strings.Repeat("x", 11)); !errors.Is(err, ErrTooLong) {
		t.Fatalf("want ErrTooLong, got %v", err)
	}
	if _, err := svc.Answer(context.Background(), "u1", "missing", "hi there"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("want ErrSessionNotFound, got %v", err)
	}
	if _, err := svc.Answer(context.Background(), "intruder", sess.ID, "hi there"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("foreign session: want ErrSessionNotFound, got %v", err)
	}
}

func TestAnswer_EngineErrorPersistsNothing(t *testing.T) {
	db := newServiceDB(t)
	svc := &MessageService{DB: db, Engine: &fakeEngine{err: errors.New("engine down")}}
	sess := seedSession(t, db, "u1", domain.ModeSocratic)

	if _, err := svc.Answer(context.Background(), "u1", sess.ID, "hello"); err == nil {
		t.Fatal("expected engine error")
	}
	total, _ := repo.CountMessages(context.Background(), db, sess.ID)
	if total != 0 {
		t.Fatalf("persisted %d messages despite engine failure", total)
	}
}

func TestMessageListPage(t *testing.T) {
	db := newServiceDB(t)
	svc := &MessageService{DB: db, Engine: &fakeEngine{reply: "ok"}}
	sess := seedSession(t, db, "u1", domain.ModeDirect)

	for i := 0; i < 3; i++ {
		if _, err := svc.Answer(context.Background(), "u1", sess.ID, fmt.Sprintf("question %d", i)); err != nil {
			t.Fatalf("Answer: %v", err)
		}
	}

	items, total, err := svc.ListPage(context.Background(), "u1", sess.ID, 1, 4)
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if total != 6 || len(items) != 4 {
		t.Fatalf("total=%d page=%d, want 6/4", total, len(items))
	}

	if _, _, err := svc.ListPage(context.Background(), "u2", sess.ID, 1, 10); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("foreign list: want ErrSessionNotFound, got %v", err)
	}
}
