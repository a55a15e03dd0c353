// Feedback HTTP handlers.
//
// This file exposes the REST endpoint for rating assistant messages:
//   - POST /messages/{id}/feedback  (attach rating + optional comment)
//
// Ratings are binary (0 negative, 1 positive) and immutable: the first
// rating wins, a second attempt is a conflict.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/unilearn/socratic-chat-backend/internal/services"
)

// RateMessageRequest is the JSON payload for rating an assistant message.
//
// Rating must be 0 (negative) or 1 (positive). Text is an optional
// free-form comment stored alongside the rating.
type RateMessageRequest struct {
	Rating *int   `json:"rating" binding:"required" example:"1"`
	Text   string `json:"text,omitempty" example:"Great guiding question"`
}

// RateMessage godoc
// @ID          rateMessage
// @Summary     Rate an assistant message
// @Description Records a binary rating (0 negative, 1 positive) with an optional comment. A message can be rated once.
// @Tags        Feedback
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Message ID (UUID)"      format(uuid)
// @Param       body       body    handlers.RateMessageRequest true "Feedback payload"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Invalid payload"
// @Failure     403  {object} handlers.ErrorResponse "Not allowed to rate this message"
// @Failure     404  {object} handlers.ErrorResponse "Message not found"
// @Failure     409  {object} handlers.ErrorResponse "Feedback already exists"
// @Failure     500  {object} handlers.ErrorResponse "Internal server error"
// @Router      /messages/{id}/feedback [post]
func (h *Handlers) RateMessage(c *gin.Context) {
	messageID := c.Param("id")
	if _, err := uuid.Parse(messageID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message id must be a UUID")
		return
	}

	var req RateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Rating == nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "rating must be 0 or 1")
		return
	}

	if err := h.fbSvc.Rate(c.Request.Context(), userID(c), messageID, *req.Rating, req.Text); err != nil {
		switch err {
		case services.ErrInvalidRating:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "rating must be 0 or 1")
		case services.ErrMessageNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "message not found")
		case services.ErrForbiddenFeedback:
			fail(c, http.StatusForbidden, ErrCodeForbidden, "cannot leave feedback on this message")
		case services.ErrDuplicateFeedback:
			fail(c, http.StatusConflict, ErrCodeConflict, "feedback already exists")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}

	noContent(c)
}
