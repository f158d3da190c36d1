package media

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

// FFmpeg covers the probe and extraction operations the pipeline needs.
type FFmpeg interface {
	ProbeDuration(ctx context.Context, mediaPath string) (time.Duration, error)
	HasSubtitleStream(ctx context.Context, videoPath string) (bool, error)
	ExtractSubtitles(ctx context.Context, videoPath, destSRT string) error
	ExtractFrame(ctx context.Context, videoPath string, offset time.Duration, destPath string) error
	ExtractFirstFrame(ctx context.Context, clipPath, destPath string) error
	ExtractAudio(ctx context.Context, mediaPath, destWAV string) error
}

// RealFFmpeg shells out to ffmpeg/ffprobe.
type RealFFmpeg struct {
	ffmpeg  string
	ffprobe string
	logger  *slog.Logger
}

// NewFFmpeg resolves the ffmpeg and ffprobe binaries.
func NewFFmpeg(logger *slog.Logger) (*RealFFmpeg, error) {
	ffmpeg := lookTool("ffmpeg")
	ffprobe := lookTool("ffprobe")
	if ffmpeg == "" || ffprobe == "" {
		return nil, fmt.Errorf("ffmpeg/ffprobe not found on PATH")
	}
	return &RealFFmpeg{ffmpeg: ffmpeg, ffprobe: ffprobe, logger: logger}, nil
}

// ProbeDuration returns the container duration.
func (f *RealFFmpeg) ProbeDuration(ctx context.Context, mediaPath string) (time.Duration, error) {
	result := runTool(ctx, f.logger, f.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		mediaPath,
	)
	if !result.IsSuccess() {
		return 0, fmt.Errorf("ffprobe exited %d: %s", result.ExitCode, result.StderrTail)
	}
	secs, err := strconv.ParseFloat(firstLine(result.Stdout), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe returned unparseable duration %q", firstLine(result.Stdout))
	}
	return time.Duration(secs * float64(time.Second)), nil
}

type probeStreams struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
	} `json:"streams"`
}

// HasSubtitleStream reports whether the container carries a muxed subtitle
// stream.
func (f *RealFFmpeg) HasSubtitleStream(ctx context.Context, videoPath string) (bool, error) {
	result := runTool(ctx, f.logger, f.ffprobe,
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		videoPath,
	)
	if !result.IsSuccess() {
		return false, fmt.Errorf("ffprobe exited %d: %s", result.ExitCode, result.StderrTail)
	}

	var probe probeStreams
	if err := json.Unmarshal([]byte(result.Stdout), &probe); err != nil {
		return false, fmt.Errorf("parse ffprobe output: %w", err)
	}
	for _, s := range probe.Streams {
		if s.CodecType == "subtitle" {
			return true, nil
		}
	}
	return false, nil
}

// ExtractSubtitles demuxes the first subtitle stream into an SRT file.
func (f *RealFFmpeg) ExtractSubtitles(ctx context.Context, videoPath, destSRT string) error {
	result := runTool(ctx, f.logger, f.ffmpeg,
		"-y", "-i", videoPath,
		"-map", "0:s:0",
		destSRT,
	)
	if !result.IsSuccess() {
		return fmt.Errorf("ffmpeg subtitle demux exited %d: %s", result.ExitCode, result.StderrTail)
	}
	if !fileNonEmpty(destSRT) {
		return fmt.Errorf("subtitle demux produced empty file %s", destSRT)
	}
	return nil
}

// ExtractFrame captures one frame at the given offset as a high-quality JPEG.
func (f *RealFFmpeg) ExtractFrame(ctx context.Context, videoPath string, offset time.Duration, destPath string) error {
	result := runTool(ctx, f.logger, f.ffmpeg,
		"-y",
		"-ss", formatOffset(offset),
		"-i", videoPath,
		"-vframes", "1",
		"-q:v", "2",
		destPath,
	)
	if !result.IsSuccess() {
		return fmt.Errorf("ffmpeg frame extraction exited %d: %s", result.ExitCode, result.StderrTail)
	}
	return nil
}

// ExtractFirstFrame captures the first frame of a scene clip.
func (f *RealFFmpeg) ExtractFirstFrame(ctx context.Context, clipPath, destPath string) error {
	result := runTool(ctx, f.logger, f.ffmpeg,
		"-y", "-i", clipPath,
		"-vf", "select=eq(n\\,0)",
		"-vframes", "1",
		destPath,
	)
	if !result.IsSuccess() {
		return fmt.Errorf("ffmpeg frame extraction exited %d: %s", result.ExitCode, result.StderrTail)
	}
	return nil
}

// ExtractAudio transcodes to 16 kHz mono PCM WAV, the input format both
// recognizers expect.
func (f *RealFFmpeg) ExtractAudio(ctx context.Context, mediaPath, destWAV string) error {
	result := runTool(ctx, f.logger, f.ffmpeg,
		"-y", "-i", mediaPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		destWAV,
	)
	if !result.IsSuccess() {
		return fmt.Errorf("ffmpeg audio extraction exited %d: %s", result.ExitCode, result.StderrTail)
	}
	return nil
}

func formatOffset(d time.Duration) string {
	total := int(d.Seconds())
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
