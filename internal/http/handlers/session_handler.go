// Session HTTP handlers.
//
// This file exposes REST endpoints for chat sessions:
//   - POST /sessions             (create, mode pinned at creation)
//   - GET  /sessions             (list, paginated, ETag support)
//   - PUT  /sessions/{id}/title  (rename)
//
// Handlers are transport-thin: they validate input, call application
// services, and translate results into HTTP responses (including
// conditional responses).
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/unilearn/socratic-chat-backend/internal/analytics"
	"github.com/unilearn/socratic-chat-backend/internal/domain"
	"github.com/unilearn/socratic-chat-backend/internal/repo"
	"github.com/unilearn/socratic-chat-backend/internal/services"
	"github.com/unilearn/socratic-chat-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// SessionService defines session lifecycle operations consumed by HTTP
// handlers. Implementations must be safe for concurrent use and honor the
// provided context.
type SessionService interface {
	// Create starts a new session for userID in the given dialogue mode.
	Create(ctx context.Context, userID, mode, title string) (*domain.ChatSession, error)
	// ListPage returns a page of sessions for a user and the total count.
	ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.ChatSession, int64, error)
	// UpdateTitle renames a session that belongs to userID.
	UpdateTitle(ctx context.Context, userID, sessionID, title string) error
}

// MessageService defines message retrieval and generation operations.
type MessageService interface {
	// Answer appends a user prompt and an assistant reply atomically.
	Answer(ctx context.Context, userID, sessionID, prompt string) (*domain.Message, error)
	// ListPage returns a page of messages within a session owned by userID.
	ListPage(ctx context.Context, userID, sessionID string, page, pageSize int) ([]domain.Message, int64, error)
}

// FeedbackService defines the operation to rate assistant messages.
type FeedbackService interface {
	// Rate attaches a binary rating (0 negative, 1 positive) and an
	// optional comment to an assistant message.
	Rate(ctx context.Context, userID, messageID string, rating int, comment string) error
}

// AnalyticsProvider serves assembled dashboard snapshots.
type AnalyticsProvider interface {
	// Summary returns the (possibly cached) snapshot for a role filter.
	Summary(ctx context.Context, role string) (analytics.Snapshot, error)
	// Refresh invalidates cached snapshots and rebuilds the one for role.
	Refresh(ctx context.Context, role string) (analytics.Snapshot, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for sessions, messages, feedback, and
// the analytics dashboard. It depends on abstract service interfaces to
// keep transport concerns separate from business logic.
type Handlers struct {
	sessionSvc SessionService
	msgSvc     MessageService
	fbSvc      FeedbackService
	anSvc      AnalyticsProvider

	// defaultRole is the role filter applied to analytics requests that
	// do not pass ?role=.
	defaultRole string
}

// New constructs a Handlers instance bound to the given services.
func New(sessionSvc SessionService, msgSvc MessageService, fbSvc FeedbackService, anSvc AnalyticsProvider, defaultRole string) *Handlers {
	return &Handlers{
		sessionSvc:  sessionSvc,
		msgSvc:      msgSvc,
		fbSvc:       fbSvc,
		anSvc:       anSvc,
		defaultRole: defaultRole,
	}
}

// userID extracts the authenticated user id from the Gin context (set by the
// identity middleware). If absent, it falls back to the "X-User-ID" header
// and finally to "demo-user". It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

//
// DTOs
//

// CreateSessionRequest is the JSON payload for creating a session.
type CreateSessionRequest struct {
	// Mode pins the dialogue style for the session's lifetime.
	Mode string `json:"mode" binding:"required,oneof=Socratic Direct" example:"Socratic"`
	// Title optionally names the session; auto-titling from the first
	// prompt applies when empty.
	Title string `json:"title" example:"Virtue ethics intro"`
}

// UpdateSessionTitleRequest is the JSON payload for renaming a session.
type UpdateSessionTitleRequest struct {
	// Title is the new session name (1-255 chars).
	Title string `json:"title" binding:"required,min=1,max=255" example:"Plato week 3"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListSessionsResponse wraps a page of sessions and pagination information.
type ListSessionsResponse struct {
	Sessions   []domain.ChatSession `json:"sessions"`
	Pagination Pagination           `json:"pagination"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.ClampInt(utils.AtoiDefault(c.Query("page_size"), defaultPageSize), 1, maxPageSize)
	return
}

// paginationMeta computes the response metadata for one page.
func paginationMeta(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

//
// Handlers
//

// CreateSession godoc
// @ID          createSession
// @Summary     Create a new chat session
// @Description Creates a session for the current user pinned to a dialogue mode.
// @Tags        Sessions
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       body       body    handlers.CreateSessionRequest  true  "Create session payload"
//
// @Success     201  {object}  domain.ChatSession
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /sessions [post]
func (h *Handlers) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "mode must be Socratic or Direct")
		return
	}

	sess, err := h.sessionSvc.Create(c.Request.Context(), userID(c), req.Mode, strings.TrimSpace(req.Title))
	if err != nil {
		switch err {
		case services.ErrInvalidMode:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "mode must be Socratic or Direct")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, sess)
}

// ListSessions godoc
// @ID          listSessions
// @Summary     List sessions (paginated)
// @Description Returns a page of the user's sessions. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Sessions
// @Produce     json
//
// @Param       X-User-ID      header  string  false "User ID (demo header)"       example(user123)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListSessionsResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /sessions [get]
func (h *Handlers) ListSessions(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, isConcrete := h.sessionSvc.(*services.ChatService); isConcrete {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.SessionsStats(ctx, db, uid)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"sessions:%s:%d:%d"`, uid, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.sessionSvc.ListPage(ctx, uid, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	ok(c, http.StatusOK, ListSessionsResponse{
		Sessions:   items,
		Pagination: paginationMeta(page, pageSize, total),
	})
}

// UpdateSessionTitle godoc
// @ID          updateSessionTitle
// @Summary     Rename a session
// @Description Updates the title of a session owned by the current user.
// @Tags        Sessions
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Session ID (UUID)"      format(uuid)
// @Param       body       body    handlers.UpdateSessionTitleRequest  true  "New title"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Session not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /sessions/{id}/title [put]
func (h *Handlers) UpdateSessionTitle(c *gin.Context) {
	sessionID := c.Param("id")
	if _, err := uuid.Parse(sessionID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session id must be a UUID")
		return
	}

	var req UpdateSessionTitleRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Title) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "title required (1-255 chars)")
		return
	}

	if err := h.sessionSvc.UpdateTitle(c.Request.Context(), userID(c), sessionID, req.Title); err != nil {
		switch err {
		case services.ErrSessionNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "session not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}

	noContent(c)
}
