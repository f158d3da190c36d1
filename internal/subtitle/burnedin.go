package subtitle

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/clipsift/clipsift/internal/media"
)

const TierBurnedIn = "burned_in_ocr"

// minLineConfidence filters incidental OCR hits; lines below it are ignored.
const minLineConfidence = 0.7

// BurnedInTier recovers subtitles that were rendered into the video frames.
// It samples frames at a fixed interval, runs OCR on each, and accepts the
// result only if the fraction of sampled frames carrying confident text meets
// the coverage threshold. The threshold rejects false positives from
// incidental on-screen text (signs, watermarks, UI chrome).
type BurnedInTier struct {
	ffmpeg   media.FFmpeg
	ocr      media.Recognizer
	interval time.Duration
	minCover float64
	logger   *slog.Logger
}

func NewBurnedInTier(ffmpeg media.FFmpeg, ocr media.Recognizer, interval time.Duration, minCoverage float64, logger *slog.Logger) *BurnedInTier {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &BurnedInTier{
		ffmpeg:   ffmpeg,
		ocr:      ocr,
		interval: interval,
		minCover: minCoverage,
		logger:   logger,
	}
}

func (t *BurnedInTier) Name() string { return TierBurnedIn }

// Attempt samples and recognizes frames across the whole video. This is the
// only tier with an internal acceptance criterion; cheaper tiers accept any
// non-empty result.
func (t *BurnedInTier) Attempt(ctx context.Context, asset Asset) ([]Segment, error) {
	if asset.VideoPath == "" {
		return nil, fmt.Errorf("%w: no local video file", ErrUnavailable)
	}

	duration, err := t.ffmpeg.ProbeDuration(ctx, asset.VideoPath)
	if err != nil {
		return nil, fmt.Errorf("probe duration: %w", err)
	}
	if duration < t.interval {
		return nil, fmt.Errorf("video shorter than sampling interval")
	}

	tmpDir, err := os.MkdirTemp("", "clipsift-ocr-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmpDir)

	var segments []Segment
	sampled := 0
	withText := 0
	intervalMs := int(t.interval.Milliseconds())

	for offset := time.Duration(0); offset < duration; offset += t.interval {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		framePath := filepath.Join(tmpDir, fmt.Sprintf("frame_%06d.jpg", int(offset.Seconds())))
		if err := t.ffmpeg.ExtractFrame(ctx, asset.VideoPath, offset, framePath); err != nil {
			// A single bad frame does not fail the tier.
			t.logger.Debug("frame extraction failed", "offset_s", offset.Seconds(), "error", err)
			continue
		}
		sampled++

		lines, err := t.ocr.RecognizeFrame(ctx, framePath)
		os.Remove(framePath)
		if err != nil {
			return nil, fmt.Errorf("ocr at %s: %w", offset, err)
		}

		var texts []string
		var confSum float64
		for _, line := range lines {
			if line.Confidence > minLineConfidence && strings.TrimSpace(line.Text) != "" {
				texts = append(texts, strings.TrimSpace(line.Text))
				confSum += line.Confidence
			}
		}
		if len(texts) == 0 {
			continue
		}

		withText++
		startMs := int(offset.Milliseconds())
		segments = append(segments, Segment{
			Text:       strings.Join(texts, " "),
			StartMs:    startMs,
			EndMs:      startMs + intervalMs,
			Confidence: confSum / float64(len(texts)),
		})
	}

	if sampled == 0 {
		return nil, fmt.Errorf("no frames could be sampled")
	}

	coverage := float64(withText) / float64(sampled)
	if coverage < t.minCover {
		return nil, fmt.Errorf("text coverage %.2f below threshold %.2f (%d/%d frames)", coverage, t.minCover, withText, sampled)
	}

	t.logger.Info("burned-in subtitles recognized",
		"video_id", asset.VideoID,
		"coverage", coverage,
		"segments", len(segments),
	)
	return segments, nil
}
