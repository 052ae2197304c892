package engine

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/mfigueroa/audex/pkg/models"
)

// FFmpegEngine extracts audio by shelling out to ffmpeg. Progress is read
// from ffmpeg's machine-readable `-progress pipe:1` output and converted to
// a percentage against the input duration reported by ffprobe.
type FFmpegEngine struct {
	FFmpegPath  string
	FFprobePath string
	Codec       string // e.g. libmp3lame
	Bitrate     string // e.g. 192k
}

// NewFFmpegEngine creates an ffmpeg engine with default binary names and
// MP3 output settings
func NewFFmpegEngine() *FFmpegEngine {
	return &FFmpegEngine{
		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",
		Codec:       "libmp3lame",
		Bitrate:     "192k",
	}
}

// Name returns the engine name
func (e *FFmpegEngine) Name() string {
	return "ffmpeg"
}

// ExtractAudio runs ffmpeg to re-encode the input's audio stream into
// outputPath. The context cancels the process; callers interpret a
// context-cancelled error as cooperative cancellation.
func (e *FFmpegEngine) ExtractAudio(ctx context.Context, inputPath, outputPath string, onProgress ProgressFunc) (*models.Result, error) {
	duration, err := e.probeDuration(ctx, inputPath)
	if err != nil {
		return nil, err
	}

	args := []string{
		"-y",
		"-i", inputPath,
		"-vn",
		"-acodec", e.Codec,
		"-b:a", e.Bitrate,
		"-nostats",
		"-loglevel", "error",
		"-progress", "pipe:1",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, e.FFmpegPath, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to attach to ffmpeg output: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	consumeProgress(stdout, duration, onProgress)

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("ffmpeg failed: %s", ffmpegErrorMessage(err, stderr.String()))
	}

	result := &models.Result{
		OutputPath:      outputPath,
		DurationSeconds: duration,
		Codec:           e.Codec,
		Bitrate:         e.Bitrate,
	}
	if info, err := os.Stat(outputPath); err == nil {
		result.SizeBytes = info.Size()
	}
	return result, nil
}

// probeDuration asks ffprobe for the input duration in seconds.
// A zero duration disables percentage progress but is not an error:
// some containers only expose duration on the streams, not the format.
func (e *FFmpegEngine) probeDuration(ctx context.Context, inputPath string) (float64, error) {
	cmd := exec.CommandContext(ctx, e.FFprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		inputPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return 0, fmt.Errorf("ffprobe cancelled: %w", ctx.Err())
		}
		return 0, fmt.Errorf("ffprobe failed: %s", ffmpegErrorMessage(err, stderr.String()))
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, nil
	}
	return duration, nil
}

// consumeProgress reads ffmpeg's key=value progress stream and forwards
// percentages. ffmpeg emits out_time_us blocks terminated by a progress=
// line; progress=end marks the final block.
func consumeProgress(r io.Reader, duration float64, onProgress ProgressFunc) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		key, value := splitProgressLine(scanner.Text())
		switch key {
		case "out_time_us", "out_time_ms":
			if onProgress == nil || duration <= 0 {
				continue
			}
			us, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				continue
			}
			percent := int(float64(us) / 1e6 / duration * 100)
			onProgress(percent)
		case "progress":
			if value == "end" && onProgress != nil {
				onProgress(100)
			}
		}
	}
}

// splitProgressLine splits a single `key=value` progress line
func splitProgressLine(line string) (string, string) {
	idx := strings.IndexByte(line, '=')
	if idx < 0 {
		return "", ""
	}
	return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+1:])
}

// ffmpegErrorMessage prefers the process stderr over the bare exit error
func ffmpegErrorMessage(err error, stderr string) string {
	stderr = strings.TrimSpace(stderr)
	if stderr != "" {
		// Last line carries the actual failure, e.g. a missing audio stream
		lines := strings.Split(stderr, "\n")
		return strings.TrimSpace(lines[len(lines)-1])
	}
	return err.Error()
}
