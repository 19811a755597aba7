package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// FFmpegService shells out to ffmpeg/ffprobe to normalize media onto the
// shared 854x480@30 canvas and to stitch the final timeline.
type FFmpegService struct {
	tempDir  string
	recovery RecoveryThresholds
}

func NewFFmpegService(tempDir string, recovery RecoveryThresholds) *FFmpegService {
	// Create temp directory if it doesn't exist
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		panic(fmt.Sprintf("failed to create temp dir: %v", err))
	}

	return &FFmpegService{
		tempDir:  tempDir,
		recovery: recovery,
	}
}

// GetDuration returns the duration of a media file in seconds.
func (s *FFmpegService) GetDuration(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}

	cmd := exec.CommandContext(ctx, "ffprobe", args...)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed for %s: %w", path, err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}

	return duration, nil
}

// HasAudioStream reports whether the file carries at least one audio
// stream. Sources without one are encoded with -an so concat inputs
// stay uniform.
func (s *FFmpegService) HasAudioStream(ctx context.Context, path string) (bool, error) {
	args := []string{
		"-v", "error",
		"-select_streams", "a",
		"-show_entries", "stream=codec_type",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}

	cmd := exec.CommandContext(ctx, "ffprobe", args...)
	output, err := cmd.Output()
	if err != nil {
		return false, fmt.Errorf("ffprobe audio check failed for %s: %w", path, err)
	}

	return strings.Contains(string(output), "audio"), nil
}

// ImageToVideo renders a still image as a letterboxed video clip of the
// requested duration, with a silent stereo track so the clip concats
// against real videos. If the encoder comes up badly short, the clip is
// rebuilt through a concat list of one-second entries and trimmed.
func (s *FFmpegService) ImageToVideo(ctx context.Context, imagePath, outputPath string, duration float64) error {
	if duration < minImageClipDuration {
		duration = minImageClipDuration
	}

	if err := s.renderImageClip(ctx, imagePath, outputPath, duration); err != nil {
		return err
	}

	actual, err := s.GetDuration(ctx, outputPath)
	if err != nil {
		log.Printf("[FFmpeg] could not verify image clip duration: %v", err)
		return nil
	}

	if s.recovery.NeedsRecovery(actual, duration) {
		log.Printf("[FFmpeg] image clip came up short (actual=%.2fs, target=%.2fs), rebuilding via concat", actual, duration)
		return s.rebuildImageClip(ctx, imagePath, outputPath, duration)
	}

	return nil
}

func (s *FFmpegService) renderImageClip(ctx context.Context, imagePath, outputPath string, duration float64) error {
	args := []string{
		"-loop", "1",
		"-framerate", strconv.Itoa(targetFPS),
		"-t", fmt.Sprintf("%.3f", duration),
		"-i", imagePath,
		"-f", "lavfi",
		"-t", fmt.Sprintf("%.3f", duration),
		"-i", fmt.Sprintf("anullsrc=channel_layout=%s:sample_rate=%d", targetAudioLayout, targetAudioRate),
		"-vf", scalePadFilter(),
		"-c:v", "libx264",
		"-tune", "stillimage",
		"-crf", normalizationCRF,
		"-preset", normalizationSpeed,
		"-pix_fmt", pixelFormat,
		"-c:a", audioCodec,
		"-b:a", audioBitrate,
		"-shortest",
		"-y",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg image to video failed: %w", err)
	}

	return nil
}

// rebuildImageClip is the recovery path: a concat list repeating the
// image in one-second entries, re-encoded and trimmed to the target.
func (s *FFmpegService) rebuildImageClip(ctx context.Context, imagePath, outputPath string, duration float64) error {
	entries := LoopCount(duration, 1.0)

	listPath := filepath.Join(s.tempDir, fmt.Sprintf("recover_%s.txt", filepath.Base(outputPath)))
	f, err := os.Create(listPath)
	if err != nil {
		return fmt.Errorf("failed to create recovery list: %w", err)
	}

	for i := 0; i < entries; i++ {
		fmt.Fprintf(f, "file '%s'\nduration 1.0\n", escapeConcatPath(imagePath))
	}
	// Concat demuxer needs the last file repeated without a duration
	fmt.Fprintf(f, "file '%s'\n", escapeConcatPath(imagePath))
	f.Close()
	defer os.Remove(listPath)

	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-f", "lavfi",
		"-t", fmt.Sprintf("%.3f", duration),
		"-i", fmt.Sprintf("anullsrc=channel_layout=%s:sample_rate=%d", targetAudioLayout, targetAudioRate),
		"-vf", scalePadFilter(),
		"-c:v", "libx264",
		"-crf", normalizationCRF,
		"-preset", normalizationSpeed,
		"-pix_fmt", pixelFormat,
		"-c:a", audioCodec,
		"-b:a", audioBitrate,
		"-t", fmt.Sprintf("%.3f", duration),
		"-y",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg image clip rebuild failed: %w", err)
	}

	return nil
}

// StandardizeVideo re-encodes a source video onto the target canvas at
// exactly targetDuration seconds using the given fitting mode.
//
// Sources shorter than half a second can't be stretched sensibly; a
// representative frame is extracted and rendered through the image path
// instead.
func (s *FFmpegService) StandardizeVideo(ctx context.Context, inputPath, outputPath string, targetDuration float64, mode NormalizeMode) error {
	sourceDuration, err := s.GetDuration(ctx, inputPath)
	if err != nil {
		return fmt.Errorf("failed to probe source: %w", err)
	}

	if sourceDuration < minUsableSourceDuration {
		log.Printf("[FFmpeg] source only %.2fs, extracting frame and using image path", sourceDuration)
		framePath := filepath.Join(s.tempDir, fmt.Sprintf("frame_%s.jpg", filepath.Base(outputPath)))
		defer os.Remove(framePath)

		if err := s.ExtractFrame(ctx, inputPath, framePath); err != nil {
			return err
		}
		return s.ImageToVideo(ctx, framePath, outputPath, targetDuration)
	}

	hasAudio, err := s.HasAudioStream(ctx, inputPath)
	if err != nil {
		log.Printf("[FFmpeg] audio probe failed, assuming silent source: %v", err)
		hasAudio = false
	}

	args := []string{"-y"}

	switch mode {
	case ModeLoop:
		loops := LoopCount(targetDuration, sourceDuration)
		// -stream_loop counts extra plays, not total plays
		args = append(args, "-stream_loop", strconv.Itoa(loops-1))
		args = append(args, "-i", inputPath)
		args = append(args, "-t", fmt.Sprintf("%.3f", targetDuration))
		args = append(args, "-vf", scalePadFilter())
		if hasAudio {
			args = append(args, "-af", fmt.Sprintf("aresample=%d", targetAudioRate))
		}

	case ModeSpeed:
		factor := sourceDuration / targetDuration
		args = append(args, "-i", inputPath)
		args = append(args, "-vf", fmt.Sprintf("setpts=%.6f*PTS,%s", 1/factor, scalePadFilter()))
		if hasAudio {
			args = append(args, "-af", tempoFilter(factor))
		}
		args = append(args, "-t", fmt.Sprintf("%.3f", targetDuration))

	default: // ModeCut, and the safety net for unknown modes
		args = append(args, "-i", inputPath)
		args = append(args, "-t", fmt.Sprintf("%.3f", targetDuration))
		args = append(args, "-vf", scalePadFilter())
		if hasAudio {
			args = append(args, "-af", fmt.Sprintf("aresample=%d", targetAudioRate))
		}
	}

	args = append(args,
		"-c:v", "libx264",
		"-crf", normalizationCRF,
		"-preset", normalizationSpeed,
		"-pix_fmt", pixelFormat,
	)

	if hasAudio {
		args = append(args, "-c:a", audioCodec, "-b:a", audioBitrate, "-ar", strconv.Itoa(targetAudioRate), "-ac", "2")
	} else {
		args = append(args, "-an")
	}

	args = append(args, outputPath)

	log.Printf("[FFmpeg] standardizing %s (source=%.2fs, target=%.2fs, mode=%s, audio=%v)",
		filepath.Base(inputPath), sourceDuration, targetDuration, mode, hasAudio)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg standardize failed (mode=%s): %w", mode, err)
	}

	return nil
}

// ExtractFrame grabs a single frame from the middle of a video.
func (s *FFmpegService) ExtractFrame(ctx context.Context, videoPath, imagePath string) error {
	duration, err := s.GetDuration(ctx, videoPath)
	if err != nil {
		duration = 0
	}

	args := []string{
		"-ss", fmt.Sprintf("%.3f", duration/2),
		"-i", videoPath,
		"-vframes", "1",
		"-q:v", "2",
		"-y",
		imagePath,
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg frame extraction failed: %w", err)
	}

	return nil
}

// ConcatenateVideos stitches already-normalized clips into one file via
// the concat demuxer, with a single re-encode for uniform output.
func (s *FFmpegService) ConcatenateVideos(ctx context.Context, clipPaths []string, outputPath string) error {
	if len(clipPaths) == 0 {
		return fmt.Errorf("no clips to concatenate")
	}

	listPath := filepath.Join(s.tempDir, fmt.Sprintf("concat_%s.txt", filepath.Base(outputPath)))
	f, err := os.Create(listPath)
	if err != nil {
		return fmt.Errorf("failed to create concat list: %w", err)
	}

	for _, path := range clipPaths {
		fmt.Fprintf(f, "file '%s'\n", escapeConcatPath(path))
	}
	f.Close()
	defer os.Remove(listPath)

	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c:v", "libx264",
		"-crf", concatenationCRF,
		"-preset", concatenationSpeed,
		"-pix_fmt", pixelFormat,
		"-c:a", audioCodec,
		"-b:a", audioBitrate,
		"-ar", strconv.Itoa(targetAudioRate),
		"-y",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg concatenate failed: %w", err)
	}

	return nil
}

// ConvertImage re-renders an image into a raster format ffmpeg's image
// path handles natively. Used for SVG and other odd downloads; whether
// a given build of ffmpeg can read the source decides success.
func (s *FFmpegService) ConvertImage(ctx context.Context, inputPath, outputPath string) error {
	args := []string{
		"-i", inputPath,
		"-frames:v", "1",
		"-y",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg image conversion failed: %w", err)
	}

	return nil
}

// CreateTempFile returns a path inside the service's temp directory.
func (s *FFmpegService) CreateTempFile(filename string) string {
	return filepath.Join(s.tempDir, filename)
}

// Cleanup removes temporary files
func (s *FFmpegService) Cleanup(paths ...string) {
	for _, path := range paths {
		os.Remove(path)
	}
}

// escapeConcatPath escapes single quotes for ffmpeg concat list entries.
func escapeConcatPath(path string) string {
	return strings.ReplaceAll(path, "'", "'\\''")
}
