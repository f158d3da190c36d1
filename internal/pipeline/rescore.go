package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/clipsift/clipsift/internal/export"
	"github.com/clipsift/clipsift/internal/report"
	"github.com/clipsift/clipsift/internal/scoring"
	"github.com/clipsift/clipsift/internal/selection"
)

// ComputeDerived fills the derived fields of every scene entry in place:
// composite score, selection level, and rank. Scenes whose records fail
// validation get a score error and are excluded from ranking; raw inputs are
// never modified. Composites are independent per scene, so they are computed
// concurrently.
func ComputeDerived(sf *scoring.ScoreFile, table scoring.WeightTable, thresholds selection.Thresholds, logger *slog.Logger) []selection.Result {
	type outcome struct {
		composite float64
		record    scoring.Record
		err       error
	}
	outcomes := make([]outcome, len(sf.Scenes))

	var wg sync.WaitGroup
	for i := range sf.Scenes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			record := sf.Scenes[i].Record()
			composite, err := scoring.Composite(record, table)
			outcomes[i] = outcome{composite: composite, record: record, err: err}
		}(i)
	}
	wg.Wait()

	var inputs []selection.Input
	for i := range sf.Scenes {
		entry := &sf.Scenes[i]
		out := outcomes[i]
		if out.err != nil {
			entry.CompositeScore = nil
			entry.Selection = ""
			entry.ScoreError = out.err.Error()
			logger.Warn("scene excluded from ranking", "stage", StageComposite, "scene", entry.SceneNumber, "error", out.err)
			continue
		}
		composite := out.composite
		entry.CompositeScore = &composite
		entry.ScoreError = ""
		inputs = append(inputs, selection.Input{
			SceneIndex: entry.SceneNumber,
			Record:     out.record,
			Composite:  composite,
		})
	}

	results := selection.Rank(inputs, thresholds)

	levelByScene := make(map[int]selection.Level, len(results))
	for _, r := range results {
		levelByScene[r.SceneIndex] = r.Level
	}
	for i := range sf.Scenes {
		entry := &sf.Scenes[i]
		if level, ok := levelByScene[entry.SceneNumber]; ok {
			entry.Selection = string(level)
		}
	}
	return results
}

// Finalize writes the post-classification artifacts: rank-prefixed copies of
// the kept clips under best_shots/ and an EDL assembling them in rank order.
func Finalize(sf *scoring.ScoreFile, results []selection.Result, title, outputDir string, logger *slog.Logger) error {
	selected := selection.Selected(results)
	if len(selected) == 0 {
		logger.Info("no scenes selected, skipping best shots and EDL")
		return nil
	}

	clipPaths := make(map[int]string, len(sf.Scenes))
	entryByScene := make(map[int]*scoring.SceneEntry, len(sf.Scenes))
	for i := range sf.Scenes {
		entry := &sf.Scenes[i]
		entryByScene[entry.SceneNumber] = entry
		if entry.ClipPath != "" {
			clipPaths[entry.SceneNumber] = entry.ClipPath
		}
	}

	bestShotsDir := filepath.Join(outputDir, BestShotsDirName)
	copied, err := selection.CopyBestShots(selected, clipPaths, bestShotsDir, logger)
	if err != nil {
		return fmt.Errorf("copy best shots: %w", err)
	}
	logger.Info("best shots copied", "count", copied)

	if err := writeBestShotsSummary(selected, entryByScene, bestShotsDir); err != nil {
		logger.Warn("writing best shots summary failed", "error", err)
	}

	var clips []export.Clip
	for _, r := range selected {
		entry, ok := entryByScene[r.SceneIndex]
		if !ok {
			continue
		}
		clips = append(clips, export.Clip{
			Name:      fmt.Sprintf("scene_%03d", r.SceneIndex),
			MediaPath: entry.ClipPath,
			StartMs:   entry.StartMs,
			EndMs:     entry.EndMs,
		})
	}
	if title == "" {
		title = sf.VideoID
	}
	edlPath, err := export.WriteEDL(clips, title, outputDir, 30)
	if err != nil {
		return fmt.Errorf("write EDL: %w", err)
	}
	logger.Info("EDL written", "path", edlPath)
	return nil
}

type bestShotEntry struct {
	Rank       int     `json:"rank"`
	SceneIndex int     `json:"scene_index"`
	Selection  string  `json:"selection"`
	Composite  float64 `json:"composite_score"`
	Rationale  string  `json:"rationale,omitempty"`
}

// writeBestShotsSummary records what landed in best_shots/ and why, so the
// folder is self-describing when handed to an editor.
func writeBestShotsSummary(selected []selection.Result, entryByScene map[int]*scoring.SceneEntry, dir string) error {
	entries := make([]bestShotEntry, 0, len(selected))
	for _, r := range selected {
		e := bestShotEntry{
			Rank:       r.Rank,
			SceneIndex: r.SceneIndex,
			Selection:  string(r.Level),
			Composite:  r.Composite,
		}
		if entry, ok := entryByScene[r.SceneIndex]; ok {
			e.Rationale = entry.Rationale
		}
		entries = append(entries, e)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "summary.json"), append(data, '\n'), 0644)
}

// Rescore recomputes every derived field of an existing scoring document and
// refreshes the best-shots and EDL artifacts. It is the engine behind the
// score command: a human edits raw scores, then reruns classification without
// touching the media again.
func Rescore(ctx context.Context, dir string, table scoring.WeightTable, thresholds selection.Thresholds, renderer report.Renderer, logger *slog.Logger) (*report.Summary, error) {
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}

	scorePath := filepath.Join(dir, ScoreFileName)
	sf, err := scoring.LoadScoreFile(scorePath)
	if err != nil {
		return nil, err
	}

	results := ComputeDerived(sf, table, thresholds, logger)
	if err := sf.Save(scorePath); err != nil {
		return nil, err
	}

	if err := Finalize(sf, results, sf.VideoID, dir, logger); err != nil {
		logger.Warn("finalizing artifacts failed", "error", err)
	}

	summary := &report.Summary{
		VideoID:     sf.VideoID,
		OutputDir:   dir,
		TotalScenes: len(sf.Scenes),
		Results:     results,
	}
	for _, entry := range sf.Scenes {
		if entry.ScoreError != "" {
			summary.FailedScenes++
		} else if entry.CompositeScore != nil {
			summary.ScoredScenes++
		}
	}
	for _, r := range results {
		switch r.Level {
		case selection.LevelMustKeep:
			summary.MustKeep++
		case selection.LevelUsable:
			summary.Usable++
		case selection.LevelDiscard:
			summary.Discard++
		}
	}

	if renderer != nil {
		if err := renderer.Render(ctx, *summary); err != nil {
			return summary, &StageError{Stage: StageRenderReport, Err: err}
		}
	}
	return summary, nil
}
