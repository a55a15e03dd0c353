// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Message
// model, including the inline feedback columns on assistant rows.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/unilearn/socratic-chat-backend/internal/domain"
)

// CreateMessage inserts a new message row authored by speaker.
func CreateMessage(ctx context.Context, db *gorm.DB, sessionID, speaker, body string) (*domain.Message, error) {
	m := &domain.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Speaker:   speaker,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
	return m, db.WithContext(ctx).Create(m).Error
}

// CountMessages uses a raw COUNT so a missing table surfaces as an error.
func CountMessages(ctx context.Context, db *gorm.DB, sessionID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Raw("SELECT COUNT(*) FROM messages WHERE session_id = ? AND deleted_at IS NULL", sessionID).
		Scan(&total).Error
	return total, err
}

// ListMessagesPage returns a paginated slice ordered deterministically
// (CreatedAt ASC, ID ASC).
func ListMessagesPage(ctx context.Context, db *gorm.DB, sessionID string, offset, limit int) ([]domain.Message, error) {
	var out []domain.Message
	err := db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// GetMessage fetches a message by ID.
func GetMessage(ctx context.Context, db *gorm.DB, id string) (*domain.Message, error) {
	var m domain.Message
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// SetFeedback writes the rating (and optional comment) onto a message row
// that does not already carry one. The speaker guard keeps feedback columns
// off user rows and the feedback_rating IS NULL guard makes the first write
// win; either condition failing surfaces as zero rows affected.
func SetFeedback(ctx context.Context, db *gorm.DB, messageID string, rating int, text *string) error {
	res := db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("id = ? AND speaker = ? AND feedback_rating IS NULL", messageID, domain.SpeakerAssistant).
		Updates(map[string]any{
			"feedback_rating": rating,
			"feedback_text":   text,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
