// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file resolves the request identity and gates admin-only routes.
// There is no authentication protocol here: identity arrives as an opaque
// user id (X-User-ID header in the demo setup) from whatever sits in front
// of the service. Identity() pins it into the Gin context and lazily
// registers a profile; RequireRole() compares the stored profile role
// against a required one.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/unilearn/socratic-chat-backend/internal/sysutil"
)

// ProfileDirectory is the read side of user profiles the middleware needs:
// first-touch registration and role lookup.
type ProfileDirectory interface {
	// EnsureProfile registers userID on first touch. Implementations
	// should be idempotent.
	EnsureProfile(ctx context.Context, userID string) error
	// ProfileRole returns the role recorded for userID. Unresolved users
	// report a role that will simply fail the gate, not an error.
	ProfileRole(ctx context.Context, userID string) (string, error)
}

// resolveUserID mirrors the handler-side fallback chain: context value,
// X-User-ID header, demo default.
func resolveUserID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return sysutil.FirstNonEmpty(strings.TrimSpace(c.GetHeader("X-User-ID")), "demo-user")
}

// Identity resolves the caller's user id, stores it under the "userID"
// context key, and registers a profile on first touch (best effort: a
// directory failure never blocks the request).
func Identity(dir ProfileDirectory) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := resolveUserID(c)
		c.Set("userID", uid)
		if dir != nil {
			if err := dir.EnsureProfile(c.Request.Context(), uid); err != nil {
				lg := LoggerFrom(c)
				lg.Warn().Err(err).Str("user_id", uid).Msg("profile registration failed")
			}
		}
		c.Next()
	}
}

// RequireRole returns a middleware that admits only callers whose stored
// profile role equals required. Everyone else receives a 403 envelope; a
// directory error becomes a 500 rather than an open gate.
func RequireRole(dir ProfileDirectory, required string) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := resolveUserID(c)
		role, err := dir.ProfileRole(c.Request.Context(), uid)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"request_id": c.Writer.Header().Get("X-Request-ID"),
				"code":       "internal_error",
				"message":    "role lookup failed",
			})
			return
		}
		if role != required {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"request_id": c.Writer.Header().Get("X-Request-ID"),
				"code":       "forbidden",
				"message":    "admin role required",
			})
			return
		}
		c.Next()
	}
}
