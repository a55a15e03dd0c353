// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the UserProfile
// model. Profiles are written by the auth layer; this side mostly reads them
// for role gating and analytics, plus a first-touch upsert.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/unilearn/socratic-chat-backend/internal/domain"
)

// GetProfile fetches a profile by user ID, or ErrNotFound.
func GetProfile(ctx context.Context, db *gorm.DB, userID string) (*domain.UserProfile, error) {
	var p domain.UserProfile
	if err := db.WithContext(ctx).Where("id = ?", userID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// EnsureProfile returns the existing profile for userID, creating a student
// profile on first touch. Role changes are an admin concern and never happen
// here.
func EnsureProfile(ctx context.Context, db *gorm.DB, userID string) (*domain.UserProfile, error) {
	p, err := GetProfile(ctx, db, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	created := &domain.UserProfile{
		ID:           userID,
		Role:         domain.RoleStudent,
		RegisteredAt: time.Now().UTC(),
	}
	// Clause guards against a concurrent first touch.
	err = db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(created).Error
	if err != nil {
		return nil, err
	}
	return GetProfile(ctx, db, userID)
}
