package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"gorm.io/gorm"

	"github.com/unilearn/socratic-chat-backend/internal/domain"
)

// fakeSessionRepo records calls and returns canned data.
type fakeSessionRepo struct {
	created     *domain.ChatSession
	createErr   error
	getErr      error
	count       int64
	countErr    error
	page        []domain.ChatSession
	pageOffset  int
	pageLimit   int
	updateTitle string
}

func (f *fakeSessionRepo) CreateSession(_ context.Context, _ *gorm.DB, userID, mode, title string) (*domain.ChatSession, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = &domain.ChatSession{ID: "s1", UserID: userID, Mode: mode, Title: title}
	return f.created, nil
}

func (f *fakeSessionRepo) GetSession(_ context.Context, _ *gorm.DB, id, userID string) (*domain.ChatSession, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &domain.ChatSession{ID: id, UserID: userID}, nil
}

func (f *fakeSessionRepo) UpdateSessionTitle(_ context.Context, _ *gorm.DB, _, _, title string) error {
	f.updateTitle = title
	return nil
}

func (f *fakeSessionRepo) CountSessions(_ context.Context, _ *gorm.DB, _ string) (int64, error) {
	return f.count, f.countErr
}

func (f *fakeSessionRepo) ListSessionsPage(_ context.Context, _ *gorm.DB, _ string, offset, limit int) ([]domain.ChatSession, error) {
	f.pageOffset, f.pageLimit = offset, limit
	return f.page, nil
}

func newChatSvc(f *fakeSessionRepo) *ChatService {
	s := NewChatService(nil)
	s.Repo = f
	return s
}

func TestChatCreate_ValidatesMode(t *testing.T) {
	s := newChatSvc(&fakeSessionRepo{})
	if _, err := s.Create(context.Background(), "u1", "Oracle", ""); !errors.Is(err, ErrInvalidMode) {
		t.Fatalf("want ErrInvalidMode, got %v", err)
	}
}

func TestChatCreate_DefaultTitleAndClip(t *testing.T) {
	f := &fakeSessionRepo{}
	s := newChatSvc(f)

	sess, err := s.Create(context.Background(), "u1", domain.ModeSocratic, "   ")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sess.Title != "New session" {
		t.Fatalf("default title = %q", sess.Title)
	}

	long := strings.Repeat("x", 100)
	sess, _ = s.Create(context.Background(), "u1", domain.ModeDirect, long)
	if len([]rune(sess.Title)) != s.TitleMaxLen {
		t.Fatalf("title not clipped: %d runes", len([]rune(sess.Title)))
	}
}

func TestChatCreate_NormalizesWhitespace(t *testing.T) {
	f := &fakeSessionRepo{}
	s := newChatSvc(f)
	sess, _ := s.Create(context.Background(), "u1", domain.ModeSocratic, "  my \t  session  ")
	if sess.Title != "my session" {
		t.Fatalf("title = %q", sess.Title)
	}
}

func TestChatListPage_DefaultsAndEmpty(t *testing.T) {
	f := &fakeSessionRepo{count: 0}
	s := newChatSvc(f)

	items, total, err := s.ListPage(context.Background(), "u1", 0, -5)
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if total != 0 || len(items) != 0 {
		t.Fatalf("expected empty page, got %d/%d", len(items), total)
	}

	f.count = 45
	f.page = []domain.ChatSession{{ID: "s9"}}
	if _, _, err := s.ListPage(context.Background(), "u1", 3, 10); err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if f.pageOffset != 20 || f.pageLimit != 10 {
		t.Fatalf("offset/limit = %d/%d, want 20/10", f.pageOffset, f.pageLimit)
	}
}

func TestChatUpdateTitle_NotFound(t *testing.T) {
	f := &fakeSessionRepo{getErr: gorm.ErrRecordNotFound}
	s := newChatSvc(f)
	if err := s.UpdateTitle(context.Background(), "u1", "s1", "t"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("want ErrSessionNotFound, got %v", err)
	}
}

func TestChatGet_MapsNotFound(t *testing.T) {
	f := &fakeSessionRepo{getErr: gorm.ErrRecordNotFound}
	s := newChatSvc(f)
	if _, err := s.Get(context.Background(), "u1", "s1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("want ErrSessionNotFound, got %v", err)
	}
}
