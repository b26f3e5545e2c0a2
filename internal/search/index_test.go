package search

import (
	"testing"
)

func docs() []Document {
	return []Document{
		{ID: "p1", Text: "write a blog post about coffee brewing methods"},
		{ID: "p2", Text: "draft a technical design document for a cache"},
		{ID: "p3", Text: "coffee tasting notes for a beginner"},
		{ID: "p4", Text: "write unit tests for the billing service"},
	}
}

func TestNewIndex_SkipsBlankAndTokenFreeDocs(t *testing.T) {
	idx := NewIndex([]Document{
		{ID: "a", Text: "   "},
		{ID: "b", Text: "!!! ???"},
		{ID: "c", Text: "real content here"},
	})
	got := idx.TopK("real content", 10)
	if len(got) != 1 || got[0].ID != "c" {
		t.Fatalf("expected only doc c indexed, got %+v", got)
	}
}

func TestTopK_RanksByJaccard(t *testing.T) {
	idx := NewIndex(docs())

	got := idx.TopK("coffee brewing", 10)
	if len(got) < 2 {
		t.Fatalf("expected at least 2 matches, got %d", len(got))
	}
	// p1 shares both tokens, p3 only "coffee"
	if got[0].ID != "p1" {
		t.Fatalf("expected p1 first, got %q", got[0].ID)
	}
	if got[1].ID != "p3" {
		t.Fatalf("expected p3 second, got %q", got[1].ID)
	}
	if got[0].Score <= got[1].Score {
		t.Fatalf("expected descending scores: %v", got)
	}
}

func TestTopK_EmptyQueryAndNoMatches(t *testing.T) {
	idx := NewIndex(docs())
	if got := idx.TopK("   ", 5); got != nil {
		t.Fatalf("blank query should return nil, got %+v", got)
	}
	if got := idx.TopK("zzzcompletelyunknown", 5); got != nil {
		t.Fatalf("no-match query should return nil, got %+v", got)
	}
	empty := NewIndex(nil)
	if got := empty.TopK("coffee", 5); got != nil {
		t.Fatalf("empty index should return nil, got %+v", got)
	}
}

func TestTopK_CapsAtK(t *testing.T) {
	idx := NewIndex(docs())
	got := idx.TopK("write a document for coffee tests", 1)
	if len(got) != 1 {
		t.Fatalf("expected exactly 1 result, got %d", len(got))
	}
}

func TestTopK_DefaultsKWhenNonPositive(t *testing.T) {
	idx := NewIndex(docs())
	got := idx.TopK("coffee", 0)
	if len(got) == 0 {
		t.Fatalf("expected results with defaulted k")
	}
}

func TestNewIndex_Stopwords(t *testing.T) {
	idx := NewIndex(docs(), WithStopwords([]string{"a", "for", "the", "about"}))
	got := idx.TopK("a the for about", 5)
	if got != nil {
		t.Fatalf("stopword-only query should return nil, got %+v", got)
	}
}

func TestNewIndex_MaxDocs(t *testing.T) {
	idx := NewIndex(docs(), WithMaxDocs(1))
	// only p1 indexed
	if got := idx.TopK("coffee tasting notes", 10); len(got) != 1 || got[0].ID != "p1" {
		t.Fatalf("expected only p1 indexed, got %+v", got)
	}
}

func TestTopK_DeterministicTieBreak(t *testing.T) {
	idx := NewIndex([]Document{
		{ID: "b", Text: "alpha beta gamma"},
		{ID: "a", Text: "alpha beta delta"},
	})
	// identical scores; shorter-or-lexicographically-smaller text wins
	first := idx.TopK("alpha beta", 2)
	second := idx.TopK("alpha beta", 2)
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("expected 2 results both runs")
	}
	if first[0].ID != second[0].ID || first[1].ID != second[1].ID {
		t.Fatalf("ordering not deterministic: %+v vs %+v", first, second)
	}
}
