// Package services – MessageService
//
// This file implements MessageService, the application-level component that
// owns the lifecycle of messages and assistant replies. It validates inputs,
// checks session ownership, asks the dialogue engine for a mode-shaped reply,
// and persists the user/assistant message pair atomically.
//
// Optional enhancement: it also auto-generates a session title from the first
// user prompt when the session still has a default/empty title.
//
// Observability: all public methods are OpenTelemetry-instrumented; spans
// include session/user identifiers and pagination parameters where applicable.
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/unilearn/socratic-chat-backend/internal/dialogue"
	"github.com/unilearn/socratic-chat-backend/internal/domain"
	"github.com/unilearn/socratic-chat-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// historyWindow caps how many prior messages feed the dialogue engine.
const historyWindow = 10

// MessageService coordinates message persistence and engine replies.
type MessageService struct {
	DB     *gorm.DB
	Engine dialogue.Engine

	// Optional guards
	MaxPromptRunes int
	MaxReplyRunes  int

	// Title generation config
	TitleLocale language.Tag
	TitleMaxLen int
}

// Answer validates prompt, verifies the session, obtains the engine's reply
// for the session's mode, and persists both user and assistant messages
// atomically. It may auto-generate a session title from the first prompt.
func (s *MessageService) Answer(ctx context.Context, userID, sessionID, prompt string) (*domain.Message, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Answer",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}
	if s.MaxPromptRunes > 0 && utf8.RuneCountInString(prompt) > s.MaxPromptRunes {
		return nil, ErrTooLong
	}

	sess, err := repo.GetSession(ctx, s.DB, sessionID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	history, err := s.recentHistory(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	reply, err := s.Engine.Reply(ctx, sess.Mode, history, prompt)
	if err != nil {
		return nil, err
	}
	reply = s.clipReply(reply)

	// Persist user + assistant (and maybe update title) in one transaction
	var assistantMsg *domain.Message
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.CreateMessage(ctx, tx, sessionID, domain.SpeakerUser, prompt); err != nil {
			return err
		}
		m, err := repo.CreateMessage(ctx, tx, sessionID, domain.SpeakerAssistant, reply)
		if err != nil {
			return err
		}
		assistantMsg = m

		if s.shouldAutoTitle(sess.Title) {
			if gen := s.generateTitleFromPrompt(prompt); gen != "" {
				if uerr := tx.Model(&domain.ChatSession{}).Where("id = ?", sessionID).Update("title", s.clipTitle(gen)).Error; uerr == nil {
					sess.Title = gen
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return assistantMsg, nil
}

// ListPage returns paginated messages for a session owned by userID.
func (s *MessageService) ListPage(ctx context.Context, userID, sessionID string, page, pageSize int) ([]domain.Message, int64, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	if _, err := repo.GetSession(ctx, s.DB, sessionID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, ErrSessionNotFound
		}
		return nil, 0, err
	}

	total, err := repo.CountMessages(ctx, s.DB, sessionID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Message{}, 0, nil
	}

	items, err := repo.ListMessagesPage(ctx, s.DB, sessionID, offset, pageSize)
	return items, total, err
}

// recentHistory loads the tail of the conversation as engine turns.
func (s *MessageService) recentHistory(ctx context.Context, sessionID string) ([]dialogue.Turn, error) {
	total, err := repo.CountMessages(ctx, s.DB, sessionID)
	if err != nil {
		return nil, err
	}
	offset := 0
	if total > historyWindow {
		offset = int(total) - historyWindow
	}
	msgs, err := repo.ListMessagesPage(ctx, s.DB, sessionID, offset, historyWindow)
	if err != nil {
		return nil, err
	}
	turns := make([]dialogue.Turn, len(msgs))
	for i, m := range msgs {
		turns[i] = dialogue.Turn{Speaker: m.Speaker, Body: m.Body}
	}
	return turns, nil
}

func (s *MessageService) clipReply(reply string) string {
	if s.MaxReplyRunes > 0 && utf8.RuneCountInString(reply) > s.MaxReplyRunes {
		return string([]rune(reply)[:s.MaxReplyRunes])
	}
	return reply
}

// shouldAutoTitle reports whether the current title is a placeholder.
func (s *MessageService) shouldAutoTitle(current string) bool {
	t := strings.TrimSpace(strings.ToLower(current))
	return t == "" || t == strings.ToLower(defaultTitle) || t == "untitled"
}

// generateTitleFromPrompt derives a concise title from the prompt.
func (s *MessageService) generateTitleFromPrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return ""
	}
	toks := titleWordRE.FindAllString(strings.ToLower(prompt), -1)
	if len(toks) == 0 {
		return ""
	}

	titleCaser := cases.Title(s.titleLocaleOrDefault())
	out := make([]string, 0, 8)
	for _, w := range toks {
		if _, skip := titleStopWords[w]; skip {
			continue
		}
		out = append(out, titleCaser.String(w))
		if len(out) >= 8 {
			break
		}
	}
	if len(out) == 0 {
		return ""
	}
	return strings.Join(out, " ")
}

// clipTitle truncates a generated title to the configured maximum rune length.
func (s *MessageService) clipTitle(title string) string {
	max := s.TitleMaxLen
	if max <= 0 {
		max = 60
	}
	if utf8.RuneCountInString(title) > max {
		return string([]rune(title)[:max])
	}
	return title
}

// titleLocaleOrDefault returns the configured locale for casing or English if unset.
func (s *MessageService) titleLocaleOrDefault() language.Tag {
	if s.TitleLocale == language.Und {
		return language.English
	}
	return s.TitleLocale
}

// --- Title generation helpers ---

// Extract Unicode letters with optional trailing numbers (e.g., "chapter12").
var titleWordRE = regexp.MustCompile(`[\p{L}]+[\p{N}]*`)

// Minimal English stop-words set for compact titles.
var titleStopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "of": {}, "to": {}, "in": {},
	"is": {}, "are": {}, "for": {}, "on": {}, "with": {}, "by": {}, "from": {},
	"at": {}, "as": {}, "that": {}, "this": {}, "it": {}, "be": {}, "was": {}, "were": {},
}
