// Package pacing turns a raw script into evenly timed segments. The word
// count and a speaking rate give the total narration time; a content
// density (items per minute) carves that into segments, each paired with
// the slice of words spoken during it.
package pacing

import (
	"math"
	"strings"
)

type Plan struct {
	TotalDuration   float64 // Seconds of narration for the whole script
	SegmentDuration float64 // Nominal seconds per segment
	SegmentCount    int
	WordsPerSegment int
}

type Segment struct {
	Index    int
	Text     string
	Words    int
	Duration float64 // Seconds, derived from this segment's actual word count
}

// Compute derives the timing plan for a script.
//
// speakingRate is words per minute, contentPerMinute is how many media
// items should appear per minute of narration, and minSegmentDuration
// floors the per-segment length so very dense settings cannot produce
// sub-second flashes.
func Compute(wordCount int, speakingRate, contentPerMinute, minSegmentDuration float64) Plan {
	totalDuration := float64(wordCount) / speakingRate * 60

	segmentDuration := 60 / contentPerMinute
	if segmentDuration < minSegmentDuration {
		segmentDuration = minSegmentDuration
	}

	segmentCount := int(math.Floor(totalDuration / segmentDuration))
	if segmentCount < 1 {
		segmentCount = 1
	}

	wordsPerSegment := int(math.Floor(speakingRate * segmentDuration / 60))
	if wordsPerSegment < 1 {
		wordsPerSegment = 1
	}

	return Plan{
		TotalDuration:   totalDuration,
		SegmentDuration: segmentDuration,
		SegmentCount:    segmentCount,
		WordsPerSegment: wordsPerSegment,
	}
}

// Tokenize splits a script on whitespace. Punctuation stays attached to
// its word.
func Tokenize(script string) []string {
	return strings.Fields(script)
}

// Split chunks the script into segments of wordsPerSegment words each.
// The final segment absorbs any remainder. Splitting is pure: the same
// script and plan always produce the same segments, so a restarted job
// re-derives identical boundaries.
func Split(script string, plan Plan, speakingRate, minSegmentDuration float64) []Segment {
	words := Tokenize(script)
	if len(words) == 0 {
		return nil
	}

	var segments []Segment
	for start := 0; start < len(words); start += plan.WordsPerSegment {
		end := start + plan.WordsPerSegment
		if end > len(words) {
			end = len(words)
		}

		chunk := words[start:end]
		duration := float64(len(chunk)) / speakingRate * 60
		if duration < minSegmentDuration {
			duration = minSegmentDuration
		}

		segments = append(segments, Segment{
			Index:    len(segments),
			Text:     strings.Join(chunk, " "),
			Words:    len(chunk),
			Duration: duration,
		})
	}

	return segments
}
