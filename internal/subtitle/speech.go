package subtitle

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/clipsift/clipsift/internal/media"
)

const TierSpeech = "speech"

// SpeechTier is the last resort: local speech recognition over the asset's
// audio. It needs no external signal and is the only tier allowed to run
// unconditionally, so it terminates the chain. Its failure fails the whole
// chain.
type SpeechTier struct {
	ffmpeg     media.FFmpeg
	recognizer media.Recognizer
	logger     *slog.Logger
}

func NewSpeechTier(ffmpeg media.FFmpeg, recognizer media.Recognizer, logger *slog.Logger) *SpeechTier {
	return &SpeechTier{ffmpeg: ffmpeg, recognizer: recognizer, logger: logger}
}

func (t *SpeechTier) Name() string { return TierSpeech }

// Attempt extracts 16 kHz mono audio and transcribes it locally.
func (t *SpeechTier) Attempt(ctx context.Context, asset Asset) ([]Segment, error) {
	if asset.VideoPath == "" {
		return nil, fmt.Errorf("%w: no local media file", ErrUnavailable)
	}

	tmpDir, err := os.MkdirTemp("", "clipsift-speech-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmpDir)

	wavPath := filepath.Join(tmpDir, "audio.wav")
	if err := t.ffmpeg.ExtractAudio(ctx, asset.VideoPath, wavPath); err != nil {
		return nil, fmt.Errorf("extract audio: %w", err)
	}

	speech, err := t.recognizer.Transcribe(ctx, wavPath)
	if err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}

	var segments []Segment
	for _, s := range speech {
		if s.Text == "" {
			continue
		}
		segments = append(segments, Segment{
			Text:       s.Text,
			StartMs:    s.StartMs,
			EndMs:      s.EndMs,
			Confidence: s.Confidence,
		})
	}
	return segments, nil
}
