package services

import (
	"fmt"
	"math"
	"strings"
)

// Target canvas every piece of media is normalized to before
// concatenation. Mixed-source timelines only concat cleanly when every
// entry shares the same codec, geometry, and audio layout.
const (
	targetWidth        = 854
	targetHeight       = 480
	targetFPS          = 30
	targetAudioRate    = 44100
	targetAudioLayout  = "stereo"
	normalizationCRF   = "28"
	normalizationSpeed = "medium"
	concatenationCRF   = "28"
	concatenationSpeed = "fast"
	pixelFormat        = "yuv420p"
	audioCodec         = "aac"
	audioBitrate       = "128k"

	// Sources shorter than this can't loop cleanly; a representative
	// frame is extracted and treated as a still image instead.
	minUsableSourceDuration = 0.5

	minImageClipDuration = 1.0
)

// NormalizeMode selects how a video source is fitted to its target
// duration.
type NormalizeMode string

const (
	ModeCut   NormalizeMode = "cut"   // Trim a longer source
	ModeLoop  NormalizeMode = "loop"  // Repeat a shorter source
	ModeSpeed NormalizeMode = "speed" // Retime the source to fit exactly
)

// ChooseMode picks the default fitting strategy: cut when the source
// runs long, loop when it runs short.
func ChooseMode(sourceDuration, targetDuration float64) NormalizeMode {
	if sourceDuration > targetDuration {
		return ModeCut
	}
	return ModeLoop
}

// LoopCount returns how many times a source must play to cover the
// target duration.
func LoopCount(targetDuration, sourceDuration float64) int {
	if sourceDuration <= 0 {
		return 1
	}
	n := int(math.Ceil(targetDuration / sourceDuration))
	if n < 1 {
		n = 1
	}
	return n
}

// TempoChain decomposes an audio speed factor into a chain of atempo
// stages. ffmpeg's atempo filter only accepts factors in [0.5, 2.0], so
// larger changes are applied in steps whose product equals the requested
// factor.
func TempoChain(factor float64) []float64 {
	if factor <= 0 {
		return []float64{1.0}
	}

	var chain []float64
	for factor > 2.0 {
		chain = append(chain, 2.0)
		factor /= 2.0
	}
	for factor < 0.5 {
		chain = append(chain, 0.5)
		factor /= 0.5
	}
	return append(chain, factor)
}

// tempoFilter renders a TempoChain as an ffmpeg -af expression.
func tempoFilter(factor float64) string {
	stages := TempoChain(factor)
	parts := make([]string, len(stages))
	for i, s := range stages {
		parts[i] = fmt.Sprintf("atempo=%.6f", s)
	}
	return strings.Join(parts, ",")
}

// RecoveryThresholds governs when an image-derived clip is rebuilt
// because the encoder produced something far shorter than requested.
type RecoveryThresholds struct {
	Tolerance      float64 // Seconds of acceptable deviation
	ShortfallRatio float64 // Actual must be below this fraction of target
	MaxActual      float64 // Actual must also be below this many seconds
}

func DefaultRecoveryThresholds() RecoveryThresholds {
	return RecoveryThresholds{
		Tolerance:      0.5,
		ShortfallRatio: 0.8,
		MaxActual:      2.0,
	}
}

// NeedsRecovery reports whether an image clip's measured duration is so
// far under target that the concat-based rebuild should run. All three
// conditions must hold; a near-miss or a long-but-short clip is left
// alone.
func (t RecoveryThresholds) NeedsRecovery(actual, target float64) bool {
	return math.Abs(actual-target) > t.Tolerance &&
		actual < t.ShortfallRatio*target &&
		actual < t.MaxActual
}

// scalePadFilter letterboxes any input into the target canvas.
func scalePadFilter() string {
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,fps=%d",
		targetWidth, targetHeight, targetWidth, targetHeight, targetFPS,
	)
}
