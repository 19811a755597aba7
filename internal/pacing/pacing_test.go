package pacing

import (
	"math"
	"strings"
	"testing"
)

func repeatWords(word string, n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = word
	}
	return strings.Join(words, " ")
}

func TestComputeEvenScript(t *testing.T) {
	// 120 words at 120 wpm with 10 items per minute: one minute of
	// narration carved into ten 6-second segments of 12 words each.
	plan := Compute(120, 120, 10, 2.0)

	if plan.TotalDuration != 60 {
		t.Errorf("expected total duration 60s, got %v", plan.TotalDuration)
	}
	if plan.SegmentDuration != 6 {
		t.Errorf("expected segment duration 6s, got %v", plan.SegmentDuration)
	}
	if plan.SegmentCount != 10 {
		t.Errorf("expected 10 segments, got %d", plan.SegmentCount)
	}
	if plan.WordsPerSegment != 12 {
		t.Errorf("expected 12 words per segment, got %d", plan.WordsPerSegment)
	}
}

func TestComputeAppliesMinimums(t *testing.T) {
	// Very dense content: 60/contentPerMinute would be 0.5s, which the
	// floor pushes up to 2s.
	plan := Compute(100, 120, 120, 2.0)
	if plan.SegmentDuration != 2.0 {
		t.Errorf("expected floored segment duration 2s, got %v", plan.SegmentDuration)
	}

	// Tiny script never yields zero segments.
	plan = Compute(3, 120, 10, 2.0)
	if plan.SegmentCount != 1 {
		t.Errorf("expected at least 1 segment, got %d", plan.SegmentCount)
	}
}

func TestSplitEvenScript(t *testing.T) {
	script := repeatWords("word", 120)
	plan := Compute(120, 120, 10, 2.0)

	segments := Split(script, plan, 120, 2.0)

	if len(segments) != 10 {
		t.Fatalf("expected 10 segments, got %d", len(segments))
	}

	for i, seg := range segments {
		if seg.Index != i {
			t.Errorf("segment %d has index %d", i, seg.Index)
		}
		if seg.Words != 12 {
			t.Errorf("segment %d has %d words, want 12", i, seg.Words)
		}
		if math.Abs(seg.Duration-6.0) > 1e-9 {
			t.Errorf("segment %d duration = %v, want 6s", i, seg.Duration)
		}
	}
}

func TestSplitRemainderGoesToLastSegment(t *testing.T) {
	// 30 words with 12 per segment: 12 + 12 + 6.
	script := repeatWords("word", 30)
	plan := Plan{WordsPerSegment: 12}

	segments := Split(script, plan, 120, 2.0)

	if len(segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segments))
	}
	if segments[2].Words != 6 {
		t.Errorf("last segment has %d words, want 6", segments[2].Words)
	}

	// 6 words at 120 wpm is 3 seconds, above the floor.
	if math.Abs(segments[2].Duration-3.0) > 1e-9 {
		t.Errorf("last segment duration = %v, want 3s", segments[2].Duration)
	}
}

func TestSplitFloorsShortSegmentDuration(t *testing.T) {
	// A 2-word trailing segment at 120 wpm is only 1 second of speech;
	// the duration floor lifts it to 2 seconds.
	script := repeatWords("word", 14)
	plan := Plan{WordsPerSegment: 12}

	segments := Split(script, plan, 120, 2.0)

	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
	if segments[1].Duration != 2.0 {
		t.Errorf("trailing segment duration = %v, want floored 2s", segments[1].Duration)
	}
}

func TestSplitIsPure(t *testing.T) {
	script := "the quick brown fox jumps over the lazy dog again and again"
	plan := Compute(len(Tokenize(script)), 120, 10, 2.0)

	first := Split(script, plan, 120, 2.0)
	second := Split(script, plan, 120, 2.0)

	if len(first) != len(second) {
		t.Fatalf("segment counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("segment %d differs between runs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestSplitEmptyScript(t *testing.T) {
	segments := Split("   \n\t  ", Plan{WordsPerSegment: 12}, 120, 2.0)
	if segments != nil {
		t.Errorf("expected nil segments for blank script, got %d", len(segments))
	}
}

func TestTokenizeCollapsesWhitespace(t *testing.T) {
	words := Tokenize("  one\ttwo \n three  ")
	if len(words) != 3 {
		t.Fatalf("expected 3 words, got %d: %v", len(words), words)
	}
	if words[0] != "one" || words[2] != "three" {
		t.Errorf("unexpected tokens: %v", words)
	}
}
