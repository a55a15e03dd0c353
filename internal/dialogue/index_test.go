package dialogue

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTopKRanksByOverlap(t *testing.T) {
	idx := NewIndexFromStrings([]string{
		"The cat sat on the mat and watched the garden birds all afternoon long.",
		"Dogs chase cats through gardens whenever the gate is left open at dusk.",
	}, WithMinPassageRunes(0))

	hits := idx.TopK("cat sat mat", 2)
	if len(hits) == 0 {
		t.Fatal("no hits")
	}
	if !strings.Contains(hits[0].Text, "sat on the mat") {
		t.Fatalf("wrong top hit: %q", hits[0].Text)
	}
	if hits[0].Score <= 0 || hits[0].Score > 1 {
		t.Fatalf("score out of range: %v", hits[0].Score)
	}
}

func TestTopKEmptyQueryAndIndex(t *testing.T) {
	idx := NewIndexFromStrings(nil)
	if hits := idx.TopK("anything", 3); hits != nil {
		t.Fatalf("empty index returned hits: %v", hits)
	}
	idx = NewIndexFromStrings([]string{"some sufficiently long passage about nothing in particular here"})
	if hits := idx.TopK("   ", 3); hits != nil {
		t.Fatalf("blank query returned hits: %v", hits)
	}
}

func TestStopwordsRemoved(t *testing.T) {
	idx := NewIndexFromStrings(
		[]string{"the quick brown fox jumps over the lazy dog near the river bank"},
		WithMinPassageRunes(0),
		WithStopwords([]string{"the", "over"}),
	)
	if hits := idx.TopK("the the the", 1); hits != nil {
		t.Fatalf("stopword-only query matched: %v", hits)
	}
	if hits := idx.TopK("quick fox", 1); len(hits) != 1 {
		t.Fatalf("content query missed: %v", hits)
	}
}

func TestShortPassagesFiltered(t *testing.T) {
	idx := NewIndexFromStrings([]string{"too short", strings.Repeat("reasonably long passage ", 4)})
	if hits := idx.TopK("short", 3); hits != nil {
		t.Fatalf("short passage indexed: %v", hits)
	}
}

func TestNewIndexFromBookFlattensTables(t *testing.T) {
	book := `# Chapter 1

Philosophy begins in wonder, as both Plato and Aristotle observed long ago.

| Term | Meaning |
|------|---------|
| Arete | Excellence or virtue of a person or thing in fulfilling its purpose |
`
	path := filepath.Join(t.TempDir(), "book.md")
	if err := os.WriteFile(path, []byte(book), 0o600); err != nil {
		t.Fatalf("write book: %v", err)
	}

	idx, err := NewIndexFromBook(path, WithMinPassageRunes(10))
	if err != nil {
		t.Fatalf("NewIndexFromBook: %v", err)
	}
	hits := idx.TopK("arete excellence virtue", 1)
	if len(hits) != 1 || !strings.Contains(hits[0].Text, "Arete") {
		t.Fatalf("table row not indexed as a fact: %v", hits)
	}
}

func TestNewIndexFromBookMissingFile(t *testing.T) {
	if _, err := NewIndexFromBook(filepath.Join(t.TempDir(), "nope.md")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
