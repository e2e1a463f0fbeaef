package audio

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

type ffprobeOutput struct {
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		SampleRate string `json:"sample_rate"`
	} `json:"streams"`
}

// Is16kHzWav reports whether the file is already 16kHz 16-bit PCM, the
// format whisper.cpp consumes natively.
func Is16kHzWav(ctx context.Context, filePath string) (bool, error) {
	cmd := exec.CommandContext(ctx, "ffprobe", "-v", "quiet", "-print_format", "json", "-show_streams", filePath)
	output, err := cmd.Output()
	if err != nil {
		return false, err
	}

	var probe ffprobeOutput
	if err := json.Unmarshal(output, &probe); err != nil {
		return false, err
	}

	for _, stream := range probe.Streams {
		if stream.CodecType == "audio" && stream.CodecName == "pcm_s16le" && stream.SampleRate == "16000" {
			return true, nil
		}
	}
	return false, nil
}

// ConvertTo16kHzWav converts an audio file to 16kHz mono WAV next to the
// input, returning the new path.
func ConvertTo16kHzWav(ctx context.Context, inputPath string) (string, error) {
	ext := strings.ToLower(filepath.Ext(inputPath))
	if ext != ".mp3" && ext != ".m4a" && ext != ".wav" {
		return "", fmt.Errorf("unsupported audio format not in [mp3,m4a,wav]: %s", ext)
	}

	outputPath := strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + "_16khz.wav"
	args := []string{
		"-i", inputPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		"-y",
		outputPath,
	}
	if err := runFFmpeg(ctx, args); err != nil {
		return "", err
	}
	return outputPath, nil
}
