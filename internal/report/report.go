// Package report receives the finished run summary. Presentation surfaces
// (docs, dashboards) live outside this tool; the default renderer only logs
// the summary so downstream consumers have a stable integration point.
package report

import (
	"context"
	"log/slog"

	"github.com/clipsift/clipsift/internal/selection"
)

// Summary is the final state of one analysis run.
type Summary struct {
	VideoID        string
	Title          string
	OutputDir      string
	TranscriptTier string
	TotalScenes    int
	ScoredScenes   int
	FailedScenes   int
	MustKeep       int
	Usable         int
	Discard        int
	Results        []selection.Result
}

type Renderer interface {
	Render(ctx context.Context, summary Summary) error
}

type LogRenderer struct {
	logger *slog.Logger
}

func NewLogRenderer(logger *slog.Logger) *LogRenderer {
	return &LogRenderer{logger: logger}
}

func (r *LogRenderer) Render(ctx context.Context, s Summary) error {
	r.logger.Info("analysis complete",
		"video_id", s.VideoID,
		"title", s.Title,
		"output_dir", s.OutputDir,
		"transcript_tier", s.TranscriptTier,
		"scenes", s.TotalScenes,
		"scored", s.ScoredScenes,
		"failed", s.FailedScenes,
		"must_keep", s.MustKeep,
		"usable", s.Usable,
		"discard", s.Discard,
	)
	for _, res := range s.Results {
		if res.Level == selection.LevelDiscard {
			continue
		}
		r.logger.Info("kept scene",
			"rank", res.Rank,
			"scene", res.SceneIndex,
			"composite", res.Composite,
			"level", res.Level,
		)
	}
	return nil
}
