package dialogue

import (
	"context"
	"fmt"
	"strings"

	"github.com/unilearn/socratic-chat-backend/internal/domain"
)

// Turn is one prior utterance of the conversation, tagged with its speaker.
type Turn struct {
	Speaker string
	Body    string
}

// Engine produces the assistant's reply for a prompt, given the session's
// dialogue mode and the conversation so far. Implementations must be safe
// for concurrent use.
type Engine interface {
	Reply(ctx context.Context, mode string, history []Turn, prompt string) (string, error)
}

// Retrieval is the bundled Engine: it looks the prompt up in the course
// text and shapes the best passage per mode. Socratic sessions answer with
// a guiding question built around the passage; Direct sessions hand the
// passage over as the answer. Replies are deterministic for a given index
// and prompt.
type Retrieval struct {
	index     Index
	threshold float64
}

// NewRetrieval wraps an index. Passages scoring below threshold are treated
// as no match.
func NewRetrieval(index Index, threshold float64) *Retrieval {
	if threshold < 0 {
		threshold = 0
	}
	return &Retrieval{index: index, threshold: threshold}
}

// Reply implements Engine. The last user turn is folded into the query so
// short follow-ups ("why?", "and then?") still land near the topic under
// discussion.
func (r *Retrieval) Reply(ctx context.Context, mode string, history []Turn, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	query := prompt
	if prev := lastUserTurn(history); prev != "" {
		query = prev + " " + prompt
	}

	var best *Passage
	if hits := r.index.TopK(query, 1); len(hits) > 0 && hits[0].Score >= r.threshold {
		best = &hits[0]
	}

	if mode == domain.ModeSocratic {
		return socraticReply(best), nil
	}
	return directReply(best), nil
}

func directReply(p *Passage) string {
	if p == nil {
		return "The text does not seem to cover that. Try asking about a topic from the course material."
	}
	return p.Text
}

func socraticReply(p *Passage) string {
	if p == nil {
		return "Let's take a step back. What part of the material made you ask that, and what do you already know about it?"
	}
	return fmt.Sprintf("Consider this passage:\n\n%s\n\nWhat does it suggest about your question? Try to put the key idea in your own words.", p.Text)
}

func lastUserTurn(history []Turn) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Speaker == domain.SpeakerUser {
			return strings.TrimSpace(history[i].Body)
		}
	}
	return ""
}
