// Package services – FeedbackService
//
// This file implements FeedbackService, which attaches binary ratings to
// assistant messages. It enforces the invariants the data model promises:
// only assistant rows carry feedback, only the session owner may rate, and
// the first rating wins (a second attempt is a duplicate, not an update).
package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/unilearn/socratic-chat-backend/internal/domain"
	"github.com/unilearn/socratic-chat-backend/internal/repo"
)

// FeedbackService validates and persists message ratings.
type FeedbackService struct {
	DB *gorm.DB

	// MaxCommentRunes caps the optional free-text comment; 0 disables the cap.
	MaxCommentRunes int
}

// Rate attaches rating (0 negative, 1 positive) and an optional comment to
// an assistant message inside a session owned by userID.
//
// Error mapping:
//   - ErrInvalidRating: rating outside {0, 1}
//   - ErrMessageNotFound: unknown message id
//   - ErrForbiddenFeedback: message not owned by the caller, or a user row
//   - ErrDuplicateFeedback: message already rated
func (s *FeedbackService) Rate(ctx context.Context, userID, messageID string, rating int, comment string) error {
	tr := otel.Tracer("services/FeedbackService")
	ctx, span := tr.Start(ctx, "Rate",
		trace.WithAttributes(
			attribute.String("message.id", messageID),
			attribute.String("user.id", userID),
			attribute.Int("rating", rating),
		),
	)
	defer span.End()

	if rating != domain.RatingNegative && rating != domain.RatingPositive {
		return ErrInvalidRating
	}

	msg, err := repo.GetMessage(ctx, s.DB, messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMessageNotFound
		}
		return err
	}
	// Ownership check through the parent session.
	if _, err := repo.GetSession(ctx, s.DB, msg.SessionID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrForbiddenFeedback
		}
		return err
	}
	if msg.Speaker != domain.SpeakerAssistant {
		return ErrForbiddenFeedback
	}
	if msg.HasFeedback() {
		return ErrDuplicateFeedback
	}

	var text *string
	if trimmed := strings.TrimSpace(comment); trimmed != "" {
		if s.MaxCommentRunes > 0 {
			runes := []rune(trimmed)
			if len(runes) > s.MaxCommentRunes {
				trimmed = string(runes[:s.MaxCommentRunes])
			}
		}
		text = &trimmed
	}

	err = repo.SetFeedback(ctx, s.DB, messageID, rating, text)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Lost a race with another rating for the same message.
		return ErrDuplicateFeedback
	}
	return err
}
