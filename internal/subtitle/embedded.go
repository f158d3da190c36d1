package subtitle

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/clipsift/clipsift/internal/media"
)

const TierEmbedded = "embedded"

// EmbeddedTier extracts a muxed subtitle stream from the downloaded container.
// Like the caption tier it accepts any non-empty result, reflecting the high
// inherent trust in authored subtitle streams.
type EmbeddedTier struct {
	ffmpeg media.FFmpeg
	logger *slog.Logger
}

func NewEmbeddedTier(ffmpeg media.FFmpeg, logger *slog.Logger) *EmbeddedTier {
	return &EmbeddedTier{ffmpeg: ffmpeg, logger: logger}
}

func (t *EmbeddedTier) Name() string { return TierEmbedded }

// Attempt probes for a subtitle stream and demuxes it when present.
func (t *EmbeddedTier) Attempt(ctx context.Context, asset Asset) ([]Segment, error) {
	if asset.VideoPath == "" {
		return nil, fmt.Errorf("%w: no local video file", ErrUnavailable)
	}

	has, err := t.ffmpeg.HasSubtitleStream(ctx, asset.VideoPath)
	if err != nil {
		return nil, fmt.Errorf("probe subtitle streams: %w", err)
	}
	if !has {
		return nil, fmt.Errorf("no embedded subtitle stream")
	}

	tmpDir, err := os.MkdirTemp("", "clipsift-embedded-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmpDir)

	srtPath := filepath.Join(tmpDir, "embedded.srt")
	if err := t.ffmpeg.ExtractSubtitles(ctx, asset.VideoPath, srtPath); err != nil {
		return nil, fmt.Errorf("extract subtitle stream: %w", err)
	}

	data, err := os.ReadFile(srtPath)
	if err != nil {
		return nil, err
	}
	return ParseSRT(string(data))
}
