// Package dialogue implements the tutoring engine: given a mode tag, a
// role-tagged history, and a new prompt, it produces the assistant's reply.
// The bundled implementation retrieves passages from a fixed course text
// with a deterministic, concurrency-safe in-memory index and shapes the
// reply per mode (Socratic questioning vs direct answering).
//
// The index is intentionally small and dependency-free:
//
//   - No logging in the library (callers decide how/what to log)
//   - Unicode-aware tokenization with optional stop-word removal
//   - Immutable, read-only after construction (safe for concurrent use)
//   - Deterministic scoring and sorting (stable order for ties)
//
// Scoring uses Jaccard similarity between the query token set and each
// passage's token set: score = |Q ∩ P| / |Q ∪ P|.
package dialogue

import (
	"bytes"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// Passage is a ranked excerpt of the course text with its similarity score.
type Passage struct {
	Text  string
	Score float64
}

// Index ranks course-text passages against a query.
type Index interface {
	TopK(query string, k int) []Passage
}

// ----------------------------------------------------------------------------
// Options

type Option func(*indexConfig)

type indexConfig struct {
	minPassageRunes int
	stopwords       map[string]struct{}
	maxPassages     int
}

func defaultIndexConfig() indexConfig {
	return indexConfig{
		minPassageRunes: 40,
	}
}

// WithMinPassageRunes drops passages shorter than n runes (fragments make
// poor answers).
func WithMinPassageRunes(n int) Option {
	return func(c *indexConfig) {
		if n >= 0 {
			c.minPassageRunes = n
		}
	}
}

// WithStopwords removes the given words from both passages and queries
// before scoring.
func WithStopwords(words []string) Option {
	return func(c *indexConfig) {
		m := make(map[string]struct{}, len(words))
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" {
				m[w] = struct{}{}
			}
		}
		if len(m) > 0 {
			c.stopwords = m
		}
	}
}

// WithMaxPassages caps how many passages the index keeps.
func WithMaxPassages(n int) Option {
	return func(c *indexConfig) {
		if n > 0 {
			c.maxPassages = n
		}
	}
}

// ----------------------------------------------------------------------------
// Implementation

type passage struct {
	text   string
	tokens map[string]struct{}
	tLen   int
}

type bookIndex struct {
	cfg      indexConfig
	passages []passage
}

// NewIndexFromBook builds an Index by reading the course text at path,
// flattening any Markdown tables into standalone facts first.
func NewIndexFromBook(path string, opts ...Option) (Index, error) {
	b, err := prepareBook(path)
	if err != nil {
		return &bookIndex{cfg: defaultIndexConfig()}, err
	}
	return NewIndexFromReader(bytes.NewReader(b), opts...)
}

// NewIndexFromReader builds an Index from UTF-8 text provided by r.
// The reader is fully consumed; passages are split on blank lines.
func NewIndexFromReader(r io.Reader, opts ...Option) (Index, error) {
	cfg := defaultIndexConfig()
	for _, o := range opts {
		o(&cfg)
	}
	all, err := io.ReadAll(r)
	if err != nil {
		return &bookIndex{cfg: cfg}, err
	}
	return buildIndex(splitPassages(string(all)), cfg), nil
}

// NewIndexFromStrings builds an Index directly from a slice of passages.
func NewIndexFromStrings(passages []string, opts ...Option) Index {
	cfg := defaultIndexConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return buildIndex(passages, cfg)
}

func buildIndex(raw []string, cfg indexConfig) *bookIndex {
	passages := make([]passage, 0, len(raw))
	for _, chunk := range raw {
		t := strings.TrimSpace(normalizeWhitespace(chunk))
		if t == "" {
			continue
		}
		if cfg.minPassageRunes > 0 && utf8.RuneCountInString(t) < cfg.minPassageRunes {
			continue
		}
		toks := tokenize(t, cfg.stopwords)
		if len(toks) == 0 {
			continue
		}
		passages = append(passages, passage{text: t, tokens: toks, tLen: len(toks)})
		if cfg.maxPassages > 0 && len(passages) >= cfg.maxPassages {
			break
		}
	}
	return &bookIndex{cfg: cfg, passages: passages}
}

// TopK returns up to k best-matching passages by Jaccard similarity.
func (i *bookIndex) TopK(q string, k int) []Passage {
	if len(i.passages) == 0 || strings.TrimSpace(q) == "" {
		return nil
	}
	if k <= 0 {
		k = 3
	}
	qTokens := tokenize(q, i.cfg.stopwords)
	if len(qTokens) == 0 {
		return nil
	}
	qLen := len(qTokens)

	type scored struct {
		text     string
		score    float64
		lenRunes int
	}
	buf := make([]scored, 0, len(i.passages))
	for _, p := range i.passages {
		over := overlap(qTokens, p.tokens)
		if over == 0 {
			continue
		}
		union := float64(qLen + p.tLen - over)
		if union <= 0 {
			continue
		}
		buf = append(buf, scored{
			text:     p.text,
			score:    float64(over) / union,
			lenRunes: utf8.RuneCountInString(p.text),
		})
	}
	if len(buf) == 0 {
		return nil
	}

	sort.SliceStable(buf, func(a, b int) bool {
		if buf[a].score != buf[b].score {
			return buf[a].score > buf[b].score
		}
		if buf[a].lenRunes != buf[b].lenRunes {
			return buf[a].lenRunes < buf[b].lenRunes
		}
		return buf[a].text < buf[b].text
	})

	if k > len(buf) {
		k = len(buf)
	}
	out := make([]Passage, k)
	for n := 0; n < k; n++ {
		out[n] = Passage{Text: buf[n].text, Score: buf[n].score}
	}
	return out
}

// ----------------------------------------------------------------------------
// Helpers

var wordRE = regexp.MustCompile(`\p{L}+\p{N}*`)

func tokenize(s string, stop map[string]struct{}) map[string]struct{} {
	words := wordRE.FindAllString(strings.ToLower(s), -1)
	if len(words) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if stop != nil {
			if _, skip := stop[w]; skip {
				continue
			}
		}
		out[w] = struct{}{}
	}
	return out
}

func overlap(a, b map[string]struct{}) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(a) > len(b) {
		a, b = b, a
	}
	n := 0
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}

func normalizeWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\r' {
			if !prevSpace {
				b.WriteByte(' ')
				prevSpace = true
			}
			continue
		}
		prevSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

var passageSplitRE = regexp.MustCompile(`\n\s*\n`)

func splitPassages(raw string) []string {
	chunks := passageSplitRE.Split(raw, -1)
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if t := strings.TrimSpace(c); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// prepareBook reads the course text at path and flattens any Markdown table
// rows into standalone facts, one per paragraph, so they index well. Files
// without tables pass through untouched.
func prepareBook(path string) ([]byte, error) {
	orig, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	sawTable := false
	wroteAny := false

	writeFact := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" || strings.EqualFold(s, "text") {
			return
		}
		b.WriteString(s)
		b.WriteString("\n\n")
		wroteAny = true
	}

	for _, line := range strings.Split(string(orig), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "|") && strings.HasSuffix(line, "|") {
			sawTable = true
			cols := strings.Split(strings.Trim(line, "|"), "|")
			allSep := true
			cleaned := make([]string, 0, len(cols))
			for _, c := range cols {
				cell := strings.TrimSpace(c)
				if cell != "" {
					cleaned = append(cleaned, cell)
				}
				tmp := strings.ReplaceAll(cell, ":", "")
				tmp = strings.ReplaceAll(tmp, "-", "")
				if strings.TrimSpace(tmp) != "" {
					allSep = false
				}
			}
			if allSep || len(cleaned) == 0 {
				continue
			}
			writeFact(strings.Join(cleaned, " "))
			continue
		}
		writeFact(line)
	}

	if !sawTable && !wroteAny {
		return orig, nil
	}
	return []byte(strings.TrimRight(b.String(), "\n") + "\n"), nil
}
