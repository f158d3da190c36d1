// Package pipeline orchestrates one video analysis run end to end: ingest,
// scene detection, transcript acquisition, frame extraction, scoring,
// composite computation, classification, and the final report.
package pipeline

import (
	"errors"
	"fmt"
)

// Stage names identify where a run failed. They appear in logs and errors.
const (
	StageIngest       = "ingest"
	StageDetect       = "detect_scenes"
	StageTranscript   = "acquire_transcript"
	StageFrames       = "extract_frames"
	StageScore        = "score"
	StageComposite    = "compute_composite"
	StageClassify     = "classify"
	StageRenderReport = "render_report"
)

// StageError wraps a stage failure. Fatal errors abort the run; recoverable
// ones degrade it (for example, continuing without a transcript).
type StageError struct {
	Stage string
	Err   error
	Fatal bool
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func fatal(stage string, err error) *StageError {
	return &StageError{Stage: stage, Err: err, Fatal: true}
}

// IsFatal reports whether err carries a fatal stage failure.
func IsFatal(err error) bool {
	var se *StageError
	return errors.As(err, &se) && se.Fatal
}

// ScoreFileName is the per-video scoring document, written next to the media.
const ScoreFileName = "scene_scores.json"

// BestShotsDirName holds rank-prefixed copies of the kept clips.
const BestShotsDirName = "best_shots"
