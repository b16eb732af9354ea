package chunker

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/oliverbatey/forager/internal/core/domain"
)

func mustNew(t *testing.T, size, overlap int) *Processor {
	t.Helper()
	p, err := New(size, overlap)
	if err != nil {
		t.Fatalf("New(%d, %d): %v", size, overlap, err)
	}
	return p
}

func TestNew(t *testing.T) {
	t.Run("valid values", func(t *testing.T) {
		p := mustNew(t, DefaultChunkSize, DefaultChunkOverlap)
		if p.Size() != DefaultChunkSize {
			t.Errorf("expected size %d, got %d", DefaultChunkSize, p.Size())
		}
		if p.Overlap() != DefaultChunkOverlap {
			t.Errorf("expected overlap %d, got %d", DefaultChunkOverlap, p.Overlap())
		}
	})

	invalid := []struct {
		name          string
		size, overlap int
	}{
		{"zero size", 0, 0},
		{"negative size", -10, 0},
		{"negative overlap", 100, -1},
		{"overlap equals size", 100, 100},
		{"overlap exceeds size", 100, 150},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.size, tt.overlap)
			if !errors.Is(err, domain.ErrConfig) {
				t.Errorf("expected ErrConfig, got %v", err)
			}
		})
	}
}

func TestProcessor_Name(t *testing.T) {
	p := mustNew(t, 10, 0)
	if p.Name() != "chunker" {
		t.Errorf("expected name 'chunker', got %q", p.Name())
	}
}

func TestProcessor_Split_Blank(t *testing.T) {
	p := mustNew(t, 10, 2)
	for _, text := range []string{"", "   ", "\n\t"} {
		if got := p.Split(text); got != nil {
			t.Errorf("Split(%q) = %v, want nil", text, got)
		}
	}
}

func TestProcessor_Split_ShortText(t *testing.T) {
	p := mustNew(t, 100, 10)

	got := p.Split("Short text")

	if len(got) != 1 || got[0] != "Short text" {
		t.Errorf("expected single chunk, got %v", got)
	}
}

func TestProcessor_Split_NoWhitespace(t *testing.T) {
	p := mustNew(t, 10, 3)

	got := p.Split("0123456789ABCDEFGHIJ")

	// Step is 7: 0-9, 7-16, 14-19.
	want := []string{"0123456789", "789ABCDEFG", "EFGHIJ"}
	if len(got) != len(want) {
		t.Fatalf("expected %d chunks, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestProcessor_Split_ExactMultiple(t *testing.T) {
	p := mustNew(t, 50, 0)

	got := p.Split(strings.Repeat("a", 100))

	if len(got) != 2 {
		t.Errorf("expected 2 chunks, got %d", len(got))
	}
}

func TestProcessor_Split_PrefersWhitespace(t *testing.T) {
	p := mustNew(t, 12, 0)

	got := p.Split("alpha beta gamma delta")

	if got[0] != "alpha beta" {
		t.Errorf("first chunk should end on a word boundary, got %q", got[0])
	}
	for _, piece := range got {
		if strings.HasPrefix(piece, " ") || strings.HasSuffix(piece, " ") {
			t.Errorf("chunk %q should be trimmed", piece)
		}
	}
}

func TestProcessor_Split_Bounds(t *testing.T) {
	p := mustNew(t, 40, 10)
	text := strings.Repeat("the quick brown fox jumps over the lazy dog ", 30)

	got := p.Split(text)

	if len(got) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(got))
	}
	for i, piece := range got {
		if n := utf8.RuneCountInString(piece); n > 40 {
			t.Errorf("chunk %d has %d runes, exceeds 40", i, n)
		}
	}
	// Consecutive chunks share text.
	tail := got[0][len(got[0])-5:]
	if !strings.Contains(got[1], tail) {
		t.Errorf("chunk 1 %q should overlap chunk 0 tail %q", got[1], tail)
	}
}

func TestProcessor_Split_Deterministic(t *testing.T) {
	p := mustNew(t, 30, 5)
	text := strings.Repeat("lorem ipsum dolor sit amet ", 20)

	first := p.Split(text)
	second := p.Split(text)

	if strings.Join(first, "|") != strings.Join(second, "|") {
		t.Error("Split should be deterministic")
	}
}

func TestProcessor_Split_MultiByte(t *testing.T) {
	p := mustNew(t, 5, 1)

	got := p.Split("héllo wörld ünïcode")

	for _, piece := range got {
		if !utf8.ValidString(piece) {
			t.Errorf("chunk %q is not valid UTF-8", piece)
		}
		if n := utf8.RuneCountInString(piece); n > 5 {
			t.Errorf("chunk %q has %d runes", piece, n)
		}
	}
}

func TestProcessor_Split_LargeOverlapTerminates(t *testing.T) {
	p := mustNew(t, 10, 9)

	got := p.Split(strings.Repeat("ab ", 40))

	if len(got) == 0 {
		t.Fatal("expected chunks")
	}
}

func TestProcessor_Chunk(t *testing.T) {
	thread := &domain.Thread{
		ID:        "abc123",
		Subreddit: "GoLang",
		Title:     "Generics",
		Permalink: "/r/golang/comments/abc123/generics/",
		Author:    "gopher",
		CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	p := mustNew(t, 10, 0)

	chunks, err := p.Chunk(thread, domain.DocSummary, "0123456789ABCDEFGHIJ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.Seq != i {
			t.Errorf("chunk %d has seq %d", i, c.Seq)
		}
		if c.ID != domain.ChunkID("abc123", domain.DocSummary, i) {
			t.Errorf("chunk %d has unexpected id %s", i, c.ID)
		}
		if c.ThreadID != "abc123" || c.DocType != domain.DocSummary {
			t.Errorf("chunk %d has wrong owner: %+v", i, c)
		}
		if c.Metadata.Subreddit != "golang" {
			t.Errorf("subreddit should be lowercased, got %q", c.Metadata.Subreddit)
		}
		if !c.Metadata.Timestamp.Equal(thread.CreatedAt) {
			t.Errorf("timestamp = %v", c.Metadata.Timestamp)
		}
	}
}

func TestProcessor_Chunk_Errors(t *testing.T) {
	p := mustNew(t, 10, 0)
	thread := &domain.Thread{ID: "abc123"}

	if _, err := p.Chunk(thread, domain.DocSummary, "  "); !errors.Is(err, domain.ErrEmptyInput) {
		t.Errorf("blank text: expected ErrEmptyInput, got %v", err)
	}
	if _, err := p.Chunk(thread, domain.DocType("comment"), "text"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("bad doc type: expected ErrInvalidInput, got %v", err)
	}
	if _, err := p.Chunk(nil, domain.DocSummary, "text"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("nil thread: expected ErrInvalidInput, got %v", err)
	}
}
