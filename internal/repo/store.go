// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the event-store read side the analytics
// pipeline consumes: full-table snapshot reads of profiles, sessions, and
// messages. Each read is a single query; the pipeline joins in memory.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/unilearn/socratic-chat-backend/internal/domain"
)

// Store bundles the snapshot reads behind one receiver so the analytics
// service can depend on a narrow interface instead of a *gorm.DB.
type Store struct {
	DB *gorm.DB
}

// UserProfiles returns every registered profile.
func (s Store) UserProfiles(ctx context.Context) ([]domain.UserProfile, error) {
	var out []domain.UserProfile
	err := s.DB.WithContext(ctx).Find(&out).Error
	return out, err
}

// ChatSessions returns every session, soft-deleted rows included: history
// must keep counting messages from sessions the user later removed.
func (s Store) ChatSessions(ctx context.Context) ([]domain.ChatSession, error) {
	var out []domain.ChatSession
	err := s.DB.WithContext(ctx).Unscoped().Find(&out).Error
	return out, err
}

// Messages returns every message, soft-deleted rows included, ordered by
// creation time so repeated snapshots of unchanged data are identical.
func (s Store) Messages(ctx context.Context) ([]domain.Message, error) {
	var out []domain.Message
	err := s.DB.WithContext(ctx).Unscoped().Order("created_at ASC, id ASC").Find(&out).Error
	return out, err
}
