package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Probe returns the duration of a media file in seconds.
func (s *Stitcher) Probe(ctx context.Context, path string) (float64, error) {
	if _, err := os.Stat(path); err != nil {
		return 0, fmt.Errorf("video file not accessible: %w", err)
	}

	if s.ffprobePath != "" {
		cmd := exec.CommandContext(ctx, s.ffprobePath,
			"-v", "error",
			"-show_entries", "format=duration",
			"-of", "default=noprint_wrappers=1:nokey=1",
			path)

		var stdout bytes.Buffer
		cmd.Stdout = &stdout

		if err := cmd.Run(); err == nil {
			if duration, err := strconv.ParseFloat(strings.TrimSpace(stdout.String()), 64); err == nil && duration > 0 {
				return duration, nil
			}
		}
	}

	cmd := exec.CommandContext(ctx, s.ffmpegPath, "-i", path, "-f", "null", "-")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	_ = cmd.Run()

	return ParseFFmpegDuration(stderr.String())
}

// ParseFFmpegDuration extracts "Duration: HH:MM:SS.xx" from ffmpeg's banner output.
func ParseFFmpegDuration(output string) (float64, error) {
	const prefix = "Duration: "
	start := strings.Index(output, prefix)
	if start == -1 {
		return 0, fmt.Errorf("duration not found in ffmpeg output")
	}
	start += len(prefix)

	end := strings.Index(output[start:], ",")
	if end == -1 {
		return 0, fmt.Errorf("invalid duration format")
	}

	value := output[start : start+end]
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid duration format: %s", value)
	}

	hours, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, err
	}
	minutes, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, err
	}
	seconds, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, err
	}

	return hours*3600 + minutes*60 + seconds, nil
}
