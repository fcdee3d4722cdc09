package audio

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Prober measures the length of a media file in seconds.
type Prober interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// FFprobe uses ffprobe to get accurate media durations.
type FFprobe struct{}

func (FFprobe) Duration(ctx context.Context, path string) (float64, error) {
	out, err := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	).Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return parseDuration(string(out))
}

func parseDuration(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "N/A" {
		return 0, fmt.Errorf("no duration reported")
	}
	dur, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	if dur < 0 {
		return 0, fmt.Errorf("negative duration %v", dur)
	}
	return dur, nil
}
