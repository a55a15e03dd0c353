package dialogue

import (
	"context"
	"strings"
	"testing"

	"github.com/unilearn/socratic-chat-backend/internal/domain"
)

var passages = []string{
	"Virtue, according to Socrates, is a kind of knowledge: no one does wrong willingly, but only out of ignorance of the good.",
	"The allegory of the cave describes prisoners who mistake shadows on a wall for reality until one of them escapes into the light.",
	"Justice in the city, Plato argues, mirrors justice in the soul: each part doing its own work without meddling in the others.",
}

func newTestEngine(t *testing.T, threshold float64) *Retrieval {
	t.Helper()
	idx := NewIndexFromStrings(passages)
	return NewRetrieval(idx, threshold)
}

func TestReplyDirectReturnsPassage(t *testing.T) {
	e := newTestEngine(t, 0)
	got, err := e.Reply(context.Background(), domain.ModeDirect, nil, "what is the allegory of the cave about?")
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if !strings.Contains(got, "prisoners") {
		t.Fatalf("expected the cave passage, got %q", got)
	}
	if strings.Contains(got, "?") && strings.HasSuffix(got, "?") {
		t.Fatalf("direct reply should not end in a question: %q", got)
	}
}

func TestReplySocraticAsksQuestion(t *testing.T) {
	e := newTestEngine(t, 0)
	got, err := e.Reply(context.Background(), domain.ModeSocratic, nil, "what is virtue according to socrates?")
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if !strings.Contains(got, "knowledge") {
		t.Fatalf("expected the virtue passage inside the reply, got %q", got)
	}
	if !strings.Contains(got, "?") {
		t.Fatalf("socratic reply must ask a question: %q", got)
	}
}

func TestReplyNoMatchFallsBack(t *testing.T) {
	e := newTestEngine(t, 0.9) // impossible threshold
	direct, err := e.Reply(context.Background(), domain.ModeDirect, nil, "tell me about quantum chromodynamics")
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if strings.Contains(direct, "Socrates") {
		t.Fatalf("fallback leaked a passage: %q", direct)
	}
	socratic, _ := e.Reply(context.Background(), domain.ModeSocratic, nil, "tell me about quantum chromodynamics")
	if socratic == direct {
		t.Fatal("modes should fall back differently")
	}
}

func TestReplyUsesHistoryForFollowUps(t *testing.T) {
	e := newTestEngine(t, 0)
	history := []Turn{
		{Speaker: domain.SpeakerUser, Body: "tell me about the allegory of the cave"},
		{Speaker: domain.SpeakerAssistant, Body: "..."},
	}
	got, err := e.Reply(context.Background(), domain.ModeDirect, history, "what happens next?")
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if !strings.Contains(got, "prisoners") {
		t.Fatalf("follow-up lost the topic: %q", got)
	}
}

func TestReplyDeterministic(t *testing.T) {
	e := newTestEngine(t, 0)
	a, _ := e.Reply(context.Background(), domain.ModeSocratic, nil, "what is justice?")
	b, _ := e.Reply(context.Background(), domain.ModeSocratic, nil, "what is justice?")
	if a != b {
		t.Fatal("same prompt produced different replies")
	}
}

func TestReplyCancelledContext(t *testing.T) {
	e := newTestEngine(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Reply(ctx, domain.ModeDirect, nil, "anything"); err == nil {
		t.Fatal("expected context error")
	}
}
