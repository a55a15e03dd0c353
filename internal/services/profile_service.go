// Package services – ProfileService
//
// Thin wrapper over the profile repository: first-touch registration and the
// role lookup the analytics admin gate relies on. Real account management
// lives in the external auth layer; this side only mirrors what it needs.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/unilearn/socratic-chat-backend/internal/domain"
	"github.com/unilearn/socratic-chat-backend/internal/repo"
)

// ProfileService reads and lazily creates user profiles.
type ProfileService struct {
	DB *gorm.DB
}

// Ensure returns the profile for userID, creating a student profile on
// first touch.
func (s *ProfileService) Ensure(ctx context.Context, userID string) (*domain.UserProfile, error) {
	return repo.EnsureProfile(ctx, s.DB, userID)
}

// Role returns the role recorded for userID. Unresolved users report
// RoleUnknown rather than an error so gating stays a simple comparison.
func (s *ProfileService) Role(ctx context.Context, userID string) (string, error) {
	p, err := repo.GetProfile(ctx, s.DB, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RoleUnknown, nil
		}
		return "", err
	}
	return p.Role, nil
}
