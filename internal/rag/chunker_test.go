package rag

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNewSplitterRejectsBadOverlap(t *testing.T) {
	if _, err := NewSplitter(500, 500); err == nil {
		t.Fatal("expected error when overlap equals size")
	}
	if _, err := NewSplitter(0, 0); err == nil {
		t.Fatal("expected error for zero size")
	}
	if _, err := NewSplitter(10, -1); err == nil {
		t.Fatal("expected error for negative overlap")
	}
}

func TestSplitWithoutSeparatorsUsesFixedWindows(t *testing.T) {
	s, err := NewSplitter(500, 50)
	if err != nil {
		t.Fatal(err)
	}
	var b strings.Builder
	for i := 0; i < 1200; i++ {
		b.WriteByte(byte('a' + i%26))
	}
	text := b.String()

	chunks := s.Split(text)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	want := []int{500, 500, 300}
	for i, c := range chunks {
		if len(c) != want[i] {
			t.Fatalf("chunk %d: expected length %d, got %d", i, want[i], len(c))
		}
	}
	for i := 0; i+1 < len(chunks); i++ {
		tail := chunks[i][len(chunks[i])-50:]
		head := chunks[i+1][:50]
		if tail != head {
			t.Fatalf("chunk %d/%d overlap mismatch: %q vs %q", i, i+1, tail, head)
		}
	}
	if chunks[0]+chunks[1][50:]+chunks[2][50:] != text {
		t.Fatal("expected chunks minus overlap to reassemble the text")
	}
}

func TestSplitRespectsSizeAndPrefersParagraphs(t *testing.T) {
	s, err := NewSplitter(100, 20)
	if err != nil {
		t.Fatal(err)
	}
	para1 := strings.Repeat("alpha ", 10)
	para2 := strings.Repeat("bravo ", 10)
	para3 := strings.Repeat("charlie delta echo foxtrot ", 8)
	text := strings.TrimSpace(para1) + "\n\n" + strings.TrimSpace(para2) + "\n\n" + strings.TrimSpace(para3)

	chunks := s.Split(text)
	if len(chunks) < 3 {
		t.Fatalf("expected at least 3 chunks, got %d: %q", len(chunks), chunks)
	}
	for i, c := range chunks {
		if n := utf8.RuneCountInString(c); n > 100 {
			t.Fatalf("chunk %d exceeds size: %d", i, n)
		}
		if strings.TrimSpace(c) != c || c == "" {
			t.Fatalf("chunk %d should be trimmed and non-empty: %q", i, c)
		}
	}
	if chunks[0] != strings.TrimSpace(para1) {
		t.Fatalf("expected first paragraph to stay whole, got %q", chunks[0])
	}
	for _, c := range chunks[2:] {
		if strings.Contains(c, "alpha") {
			t.Fatalf("paragraph three chunks should not include paragraph one: %q", c)
		}
	}
}

func TestSplitWordOverlapProperty(t *testing.T) {
	s, err := NewSplitter(60, 15)
	if err != nil {
		t.Fatal(err)
	}
	words := make([]string, 0, 80)
	for i := 0; i < 80; i++ {
		words = append(words, fmt.Sprintf("w%02d", i))
	}
	chunks := s.Split(strings.Join(words, " "))
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	for i := 0; i+1 < len(chunks); i++ {
		if utf8.RuneCountInString(chunks[i]) > 60 {
			t.Fatalf("chunk %d too long: %q", i, chunks[i])
		}
		prev := strings.Fields(chunks[i])
		next := strings.Fields(chunks[i+1])
		last := prev[len(prev)-1]
		if !strings.Contains(chunks[i+1], last) {
			t.Fatalf("expected chunk %d to repeat trailing word %q of chunk %d: %q", i+1, last, i, chunks[i+1])
		}
		if next[0] == prev[0] {
			t.Fatalf("expected chunk %d to advance past chunk %d", i+1, i)
		}
	}
}

func TestSplitEmptyText(t *testing.T) {
	s, _ := NewSplitter(500, 50)
	if chunks := s.Split("   \n\n  "); len(chunks) != 0 {
		t.Fatalf("expected no chunks for whitespace, got %q", chunks)
	}
}
