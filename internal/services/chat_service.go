// Package services – ChatService
//
// This file implements the ChatService, which manages the lifecycle of chat
// sessions. It validates the dialogue mode, normalizes titles, enforces
// ownership rules, and coordinates repository operations for creating and
// listing (with pagination) sessions. Title handling is intentionally
// minimal here because automatic title generation is performed in
// MessageService on the first user message.
//
// Service-level errors (e.g., ErrSessionNotFound) are returned for
// predictable cases so handlers can map them to HTTP results consistently.
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/unilearn/socratic-chat-backend/internal/domain"
	"github.com/unilearn/socratic-chat-backend/internal/repo"
	"golang.org/x/text/language"
)

// SessionRepo defines the repository contract required by ChatService.
// Implementations are responsible for persistence of session aggregates.
type SessionRepo interface {
	// CreateSession inserts a new session row for the given user and mode.
	CreateSession(ctx context.Context, db *gorm.DB, userID, mode, title string) (*domain.ChatSession, error)

	// GetSession fetches a session by ID ensuring it belongs to the user.
	GetSession(ctx context.Context, db *gorm.DB, id, userID string) (*domain.ChatSession, error)

	// UpdateSessionTitle updates a session's title (only if it belongs to the user).
	UpdateSessionTitle(ctx context.Context, db *gorm.DB, id, userID, title string) error

	// CountSessions returns the total number of sessions for pagination.
	CountSessions(ctx context.Context, db *gorm.DB, userID string) (int64, error)

	// ListSessionsPage returns a page of sessions belonging to the user.
	ListSessionsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.ChatSession, error)
}

// gormSessionRepo adapts the free functions in repo to SessionRepo.
type gormSessionRepo struct{}

func (gormSessionRepo) CreateSession(ctx context.Context, db *gorm.DB, userID, mode, title string) (*domain.ChatSession, error) {
	return repo.CreateSession(ctx, db, userID, mode, title)
}

func (gormSessionRepo) GetSession(ctx context.Context, db *gorm.DB, id, userID string) (*domain.ChatSession, error) {
	return repo.GetSession(ctx, db, id, userID)
}

func (gormSessionRepo) UpdateSessionTitle(ctx context.Context, db *gorm.DB, id, userID, title string) error {
	return repo.UpdateSessionTitle(ctx, db, id, userID, title)
}

func (gormSessionRepo) CountSessions(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	return repo.CountSessions(ctx, db, userID)
}

func (gormSessionRepo) ListSessionsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.ChatSession, error) {
	return repo.ListSessionsPage(ctx, db, userID, offset, limit)
}

// defaultTitle is the placeholder a fresh session carries until the first
// prompt generates a real one.
const defaultTitle = "New session"

// ChatService provides session-level operations such as creating, listing,
// and updating session metadata. It enforces title rules, mode validation,
// and ownership constraints.
type ChatService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the session repository used by this service.
	Repo SessionRepo

	// TitleMaxLen caps stored titles by rune length.
	TitleMaxLen int
	// TitleLocale is retained for compatibility; auto-titling is handled in MessageService.
	TitleLocale language.Tag
}

// NewChatService constructs a ChatService with sane defaults for title handling.
func NewChatService(db *gorm.DB) *ChatService {
	return &ChatService{
		DB:          db,
		Repo:        gormSessionRepo{},
		TitleMaxLen: 60,
		TitleLocale: language.Und,
	}
}

// Create inserts a new session owned by userID, pinned to mode for its whole
// lifetime. Titles are normalized, trimmed, clipped, and a default fallback
// is applied.
func (s *ChatService) Create(ctx context.Context, userID, mode, title string) (*domain.ChatSession, error) {
	if !domain.ValidMode(mode) {
		return nil, ErrInvalidMode
	}
	title = normalizeTitle(title)
	if title == "" {
		title = defaultTitle
	}
	return s.Repo.CreateSession(ctx, s.DB, userID, mode, s.clip(title))
}

// Get fetches a single session, enforcing ownership.
func (s *ChatService) Get(ctx context.Context, userID, sessionID string) (*domain.ChatSession, error) {
	sess, err := s.Repo.GetSession(ctx, s.DB, sessionID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return sess, nil
}

// ListPage returns a page of sessions for a user (paginated).
// It applies defaults for invalid page/pageSize and returns total count.
func (s *ChatService) ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.ChatSession, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := s.Repo.CountSessions(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.ChatSession{}, 0, nil
	}

	items, err := s.Repo.ListSessionsPage(ctx, s.DB, userID, offset, pageSize)
	return items, total, err
}

// UpdateTitle updates a session's title, ensuring the session exists and
// belongs to the given user. Falls back to "Untitled" if title is blank.
func (s *ChatService) UpdateTitle(ctx context.Context, userID, sessionID, title string) error {
	title = normalizeTitle(title)
	if title == "" {
		title = "Untitled"
	}
	if _, err := s.Repo.GetSession(ctx, s.DB, sessionID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSessionNotFound
		}
		return err
	}
	return s.Repo.UpdateSessionTitle(ctx, s.DB, sessionID, userID, s.clip(title))
}

// clip truncates a session title to the configured maximum rune length.
func (s *ChatService) clip(title string) string {
	if s.TitleMaxLen > 0 && utf8.RuneCountInString(title) > s.TitleMaxLen {
		return string([]rune(title)[:s.TitleMaxLen])
	}
	return title
}

// normalizeTitle trims whitespace and collapses multiple spaces to one.
func normalizeTitle(s string) string {
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
}

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)
