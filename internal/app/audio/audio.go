package audio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"video2guide/internal/app/chunk"
)

// Info describes a probed media file.
type Info struct {
	DurationSec float64
	SizeBytes   int64
}

// Probe returns duration and size for a media file using ffprobe.
func Probe(ctx context.Context, filePath string) (Info, error) {
	stat, err := os.Stat(filePath)
	if err != nil {
		return Info{}, err
	}

	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		filePath)
	output, err := cmd.Output()
	if err != nil {
		return Info{}, fmt.Errorf("ffprobe failed for %s: %w", filePath, err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return Info{}, fmt.Errorf("unparseable ffprobe duration %q: %w", strings.TrimSpace(string(output)), err)
	}

	return Info{DurationSec: duration, SizeBytes: stat.Size()}, nil
}

// ExtractorConfig controls audio extraction quality.
type ExtractorConfig struct {
	SampleRate int
	Channels   int
	Quality    string // high, medium, low
}

// Extractor produces speech-recognition-ready audio from media files.
type Extractor struct {
	cfg ExtractorConfig
}

func NewExtractor(cfg ExtractorConfig) *Extractor {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels == 0 {
		cfg.Channels = 1
	}
	return &Extractor{cfg: cfg}
}

// Extract strips the video stream and writes 16-bit PCM WAV tuned for
// speech recognition.
func (e *Extractor) Extract(ctx context.Context, videoPath, audioPath string) error {
	args := []string{
		"-i", videoPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(e.cfg.SampleRate),
		"-ac", strconv.Itoa(e.cfg.Channels),
		"-y",
	}
	switch e.cfg.Quality {
	case "", "high":
		args = append(args, "-q:a", "0")
	case "medium":
		args = append(args, "-q:a", "2")
	case "low":
		args = append(args, "-q:a", "4")
	}
	args = append(args, audioPath)

	if err := runFFmpeg(ctx, args); err != nil {
		return fmt.Errorf("audio extraction failed for %s: %w", videoPath, err)
	}

	stat, err := os.Stat(audioPath)
	if err != nil || stat.Size() == 0 {
		return fmt.Errorf("audio file was not created or is empty: %s", audioPath)
	}
	return nil
}

// ChunkSlicer cuts planned windows out of an audio file as heavily compressed
// mono MP3, sized to stay under upload limits without hurting speech
// recognition quality.
type ChunkSlicer struct{}

func NewChunkSlicer() *ChunkSlicer {
	return &ChunkSlicer{}
}

func (s *ChunkSlicer) Slice(ctx context.Context, audioPath string, spec chunk.Spec, outPath string) error {
	args := []string{
		"-i", audioPath,
		"-ss", formatSeconds(spec.StartSec),
		"-t", formatSeconds(spec.DurationSec),
		"-acodec", "mp3",
		"-ab", "32k",
		"-ar", "16000",
		"-ac", "1",
		"-q:a", "7",
		"-y",
		outPath,
	}
	if err := runFFmpeg(ctx, args); err != nil {
		return fmt.Errorf("failed to slice chunk %d: %w", spec.Index, err)
	}

	stat, err := os.Stat(outPath)
	if err != nil || stat.Size() == 0 {
		return fmt.Errorf("chunk file was not created or is empty: %s", outPath)
	}
	return nil
}

func runFFmpeg(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg error: %v, stderr: %s", err, tail(stderr.String(), 512))
	}
	return nil
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
