// Message HTTP handlers.
//
// This file exposes REST endpoints for session messages:
//   - POST /sessions/{id}/messages  (append a user prompt, create assistant reply)
//   - GET  /sessions/{id}/messages  (list paginated messages)
//
// Handlers are transport-thin:
//   - validate and normalize inputs (line endings, length caps)
//   - delegate to MessageService
//   - implement conditional responses (ETag)
package handlers

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/unilearn/socratic-chat-backend/internal/domain"
	"github.com/unilearn/socratic-chat-backend/internal/repo"
	"github.com/unilearn/socratic-chat-backend/internal/services"
)

//
// DTOs
//

// PostMessageRequest is the JSON payload for sending a user prompt.
//
// Prompt is normalized by the handler (line endings and excessive blank
// lines) before being passed to the service layer, which also enforces the
// maximum rune count.
type PostMessageRequest struct {
	// Prompt is the user utterance. It must be non-empty.
	Prompt string `json:"prompt" binding:"required,min=1" example:"What does Socrates mean by the examined life?"`
}

// PostMessageResponse is the JSON envelope for a newly created assistant reply.
type PostMessageResponse struct {
	Message *domain.Message `json:"message"`
}

// ListMessagesResponse contains a page of messages and pagination metadata.
type ListMessagesResponse struct {
	Messages   []domain.Message `json:"messages"`
	Pagination Pagination       `json:"pagination"`
}

//
// Helpers
//

// nlCollapseRE collapses runs of 3+ newlines to two, preserving paragraphs.
var nlCollapseRE = regexp.MustCompile(`\n{3,}`)

// sanitizePrompt normalizes user text for consistent downstream behavior:
// CRLF/CR to LF, runs of 3+ LFs to exactly two, surrounding whitespace
// trimmed.
func sanitizePrompt(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = nlCollapseRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// discoverMaxPromptRunes inspects the concrete MessageService for a
// configured prompt-length limit, falling back to a conservative cap.
func discoverMaxPromptRunes(msgSvc MessageService) int {
	const fallback = 4000
	if ms, isConcrete := msgSvc.(*services.MessageService); isConcrete {
		if ms.MaxPromptRunes > 0 {
			return ms.MaxPromptRunes
		}
	}
	return fallback
}

//
// Handlers
//

// PostMessage godoc
// @ID          postMessage
// @Summary     Send a prompt and get the assistant reply
// @Description Appends a user message to the session and generates a mode-shaped assistant reply.
// @Tags        Messages
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "User ID that owns the session"  example(user123)
// @Param       id         path    string  true  "Session ID (UUID)"              format(uuid)
// @Param       body       body    handlers.PostMessageRequest  true  "User prompt payload"
//
// @Success     200  {object}  handlers.PostMessageResponse  "Assistant reply"
// @Failure     400  {object}  handlers.ErrorResponse        "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse        "Session not found"
// @Failure     500  {object}  handlers.ErrorResponse        "Internal error"
// @Router      /sessions/{id}/messages [post]
func (h *Handlers) PostMessage(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := c.Param("id")

	if _, err := uuid.Parse(sessionID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session id must be a UUID")
		return
	}

	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "prompt required")
		return
	}

	// Sanitize + early size cap to fail fast at the edge.
	prompt := sanitizePrompt(req.Prompt)
	maxRunes := discoverMaxPromptRunes(h.msgSvc)
	if maxRunes > 0 && utf8.RuneCountInString(prompt) > maxRunes {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("prompt too long: max %d runes", maxRunes))
		return
	}
	if prompt == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "prompt required")
		return
	}

	m, err := h.msgSvc.Answer(ctx, userID(c), sessionID, prompt)
	if err != nil {
		switch err {
		case services.ErrSessionNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "session not found")
		case services.ErrTooLong:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("prompt too long: max %d runes", maxRunes))
		case services.ErrEmptyPrompt:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "prompt required")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeAnswerFailed, err.Error())
		}
		return
	}

	ok(c, http.StatusOK, PostMessageResponse{Message: m})
}

// ListMessages godoc
// @ID          listMessages
// @Summary     List messages in a session
// @Description Returns a paginated list of messages for the given session.
// @Tags        Messages
// @Produce     json
//
// @Param       X-User-ID  header string  false "User ID (demo header)"  example(user123)
// @Param       id         path   string  true  "Session ID (UUID)"      format(uuid)
// @Param       page       query  int     false "Page number"            minimum(1) default(1)
// @Param       page_size  query  int     false "Items per page"         minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListMessagesResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Session not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /sessions/{id}/messages [get]
func (h *Handlers) ListMessages(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := c.Param("id")

	if _, err := uuid.Parse(sessionID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session id must be a UUID")
		return
	}

	// ETag pre-check (best effort). Feedback writes bump UpdatedAt, so a
	// rated message invalidates cached pages too.
	var db *gorm.DB
	if svc, isConcrete := h.msgSvc.(*services.MessageService); isConcrete {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.MessagesStats(ctx, db, sessionID)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"messages:%s:%d:%d"`, sessionID, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	page, pageSize := clampPagination(c)

	items, total, err := h.msgSvc.ListPage(ctx, userID(c), sessionID, page, pageSize)
	if err != nil {
		switch err {
		case services.ErrSessionNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "session not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		}
		return
	}

	ok(c, http.StatusOK, ListMessagesResponse{
		Messages:   items,
		Pagination: paginationMeta(page, pageSize, total),
	})
}
