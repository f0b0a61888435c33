package text_test

import (
	"strings"
	"testing"

	"github.com/example/kokoro-openai-server/internal/text"
)

func TestChunk_SplitsAtSentenceBoundaries(t *testing.T) {
	chunks := text.Chunk("Hello world! This is a test. How are you?", 1)

	if len(chunks) != 3 {
		t.Fatalf("want 3 chunks, got %d: %v", len(chunks), chunks)
	}

	want := []string{"Hello world!", "This is a test.", "How are you?"}
	for i, w := range want {
		if chunks[i] != w {
			t.Errorf("chunk[%d] = %q; want %q", i, chunks[i], w)
		}
	}
}

func TestChunk_NoTerminatorsReturnsWholeText(t *testing.T) {
	chunks := text.Chunk("hello world this is a test", 10)

	if len(chunks) != 1 {
		t.Fatalf("want 1 chunk, got %d: %v", len(chunks), chunks)
	}

	if chunks[0] != "hello world this is a test" {
		t.Errorf("chunk = %q", chunks[0])
	}
}

func TestChunk_GroupsSentencesWithinLimit(t *testing.T) {
	chunks := text.Chunk("One. Two. Three.", 12)

	if len(chunks) != 2 {
		t.Fatalf("want 2 chunks, got %d: %v", len(chunks), chunks)
	}

	if chunks[0] != "One. Two." || chunks[1] != "Three." {
		t.Errorf("unexpected grouping: %v", chunks)
	}
}

func TestChunk_BlankInputReturnsNothing(t *testing.T) {
	if chunks := text.Chunk("   \n  ", 100); chunks != nil {
		t.Errorf("want nil, got %v", chunks)
	}
}

func TestChunk_OversizedSentenceKeptIntact(t *testing.T) {
	long := strings.Repeat("a", 50) + "."
	chunks := text.Chunk("Hi. "+long, 10)

	if len(chunks) != 2 {
		t.Fatalf("want 2 chunks, got %d", len(chunks))
	}

	if chunks[1] != long {
		t.Errorf("long sentence was split: %q", chunks[1])
	}
}

func TestChunk_NewlineIsABoundary(t *testing.T) {
	chunks := text.Chunk("first line\nsecond line", 1)

	if len(chunks) != 2 {
		t.Fatalf("want 2 chunks, got %d: %v", len(chunks), chunks)
	}
}
