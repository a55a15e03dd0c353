package handlers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/unilearn/socratic-chat-backend/internal/services"
)

const messageUUID = "fa4dfbe0-c3bf-47bd-b32f-d7de221cf43b"

// errAny stands in for unexpected infrastructure failures in handler tests.
var errAny = errors.New("boom")

func TestRateMessage_Success(t *testing.T) {
	fb := &fakeFbSvc{}
	r := newTestRouter(newHandlers(nil, nil, fb, nil))

	w := doJSON(t, r, http.MethodPost, "/messages/"+messageUUID+"/feedback",
		`{"rating":1,"text":"helpful"}`, map[string]string{"X-User-ID": "u1"})
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if fb.lastRating != 1 || fb.lastComment != "helpful" {
		t.Fatalf("service saw %d/%q", fb.lastRating, fb.lastComment)
	}
}

func TestRateMessage_ZeroRatingAccepted(t *testing.T) {
	fb := &fakeFbSvc{}
	r := newTestRouter(newHandlers(nil, nil, fb, nil))

	// 0 is a legitimate value (negative); the pointer binding must not
	// treat it as missing.
	w := doJSON(t, r, http.MethodPost, "/messages/"+messageUUID+"/feedback", `{"rating":0}`, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if fb.lastRating != 0 {
		t.Fatalf("rating = %d", fb.lastRating)
	}
}

func TestRateMessage_Validation(t *testing.T) {
	t.Run("invalid uuid", func(t *testing.T) {
		r := newTestRouter(newHandlers(nil, nil, nil, nil))
		w := doJSON(t, r, http.MethodPost, "/messages/nope/feedback", `{"rating":1}`, nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", w.Code)
		}
	})
	t.Run("missing rating", func(t *testing.T) {
		r := newTestRouter(newHandlers(nil, nil, nil, nil))
		w := doJSON(t, r, http.MethodPost, "/messages/"+messageUUID+"/feedback", `{}`, nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", w.Code)
		}
	})
}

func TestRateMessage_ServiceErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid rating", services.ErrInvalidRating, http.StatusBadRequest},
		{"message missing", services.ErrMessageNotFound, http.StatusNotFound},
		{"forbidden", services.ErrForbiddenFeedback, http.StatusForbidden},
		{"duplicate", services.ErrDuplicateFeedback, http.StatusConflict},
		{"db down", errAny, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRouter(newHandlers(nil, nil, &fakeFbSvc{err: tc.err}, nil))
			w := doJSON(t, r, http.MethodPost, "/messages/"+messageUUID+"/feedback", `{"rating":1}`, nil)
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}
