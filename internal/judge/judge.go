// Package judge asks a vision-capable language model to rate one scene on the
// five quality dimensions. The judge is a collaborator behind an interface so
// the pipeline and tests run without network access.
package judge

import (
	"context"

	"github.com/clipsift/clipsift/internal/scoring"
)

// Scene is the judging input for one scene: its representative frame and the
// transcript text overlapping it. Transcript may be empty when no tier
// produced text for this span.
type Scene struct {
	VideoTitle string
	SceneIndex int
	FramePath  string
	Transcript string
	Category   scoring.Category
}

// Judge rates a scene, returning a record with all five dimensions in 1..10,
// a category, and a one-line rationale. Implementations must return an error
// rather than invent values when a dimension cannot be assessed.
type Judge interface {
	ScoreScene(ctx context.Context, scene Scene) (scoring.Record, error)
}
