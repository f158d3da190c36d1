package scoring

import (
	"encoding/json"
	"fmt"
	"os"
)

// ScoreFile is the persisted per-video scoring document. Judgment sources
// (human or AI) fill the raw dimension values and category per scene; the
// engine later fills the derived fields in place. Raw inputs are never
// discarded on recompute.
type ScoreFile struct {
	VideoID     string       `json:"video_id"`
	URL         string       `json:"url,omitempty"`
	TotalScenes int          `json:"total_scenes"`
	Scenes      []SceneEntry `json:"scenes"`
}

// SceneEntry is one scene's slot in the scoring file.
type SceneEntry struct {
	SceneNumber int            `json:"scene_number"`
	StartMs     int            `json:"start_ms"`
	EndMs       int            `json:"end_ms"`
	ClipPath    string         `json:"clip_path,omitempty"`
	FramePath   string         `json:"frame_path,omitempty"`
	Category    string         `json:"category"`
	Description string         `json:"description,omitempty"`
	Scores      map[string]int `json:"scores"`
	Rationale   string         `json:"rationale,omitempty"`

	// Derived fields, written by the engine and classifier.
	CompositeScore *float64 `json:"composite_score,omitempty"`
	Selection      string   `json:"selection,omitempty"`
	ScoreError     string   `json:"score_error,omitempty"`
}

// Record converts the entry to an engine record, resolving dimension aliases
// from older templates. Unknown keys are ignored; missing canonical dimensions
// surface later through Record.Validate.
func (e SceneEntry) Record() Record {
	values := make(map[Dimension]int, len(e.Scores))
	for name, v := range e.Scores {
		if dim, ok := dimensionAliases[name]; ok {
			values[dim] = v
		}
	}
	cat, err := parseCategory(e.Category)
	if err != nil {
		cat = CategoryDefault
	}
	return Record{
		SceneIndex: e.SceneNumber,
		Category:   cat,
		Values:     values,
		Rationale:  e.Rationale,
	}
}

// TemplateScores returns the unfilled score map a new scoring template carries.
// Zero means "not yet judged" and is rejected by validation on recompute.
func TemplateScores() map[string]int {
	scores := make(map[string]int, len(Dimensions))
	for _, dim := range Dimensions {
		scores[string(dim)] = 0
	}
	return scores
}

// LoadScoreFile reads a scoring file from disk.
func LoadScoreFile(path string) (*ScoreFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read score file: %w", err)
	}
	var sf ScoreFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parse score file: %w", err)
	}
	return &sf, nil
}

// Save writes the scoring file back to disk, preserving all raw fields.
func (sf *ScoreFile) Save(path string) error {
	data, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal score file: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write score file: %w", err)
	}
	return nil
}
