package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/clipsift/clipsift/internal/scoring"
	"github.com/clipsift/clipsift/internal/selection"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fullScores(v int) map[string]int {
	return map[string]int{
		"aesthetic": v, "credibility": v, "impact": v, "memorability": v, "fun": v,
	}
}

func TestComputeDerived(t *testing.T) {
	sf := &scoring.ScoreFile{
		VideoID:     "v1",
		TotalScenes: 3,
		Scenes: []scoring.SceneEntry{
			{SceneNumber: 1, Scores: fullScores(9)},
			{SceneNumber: 2, Scores: fullScores(7)},
			{SceneNumber: 3, Scores: scoring.TemplateScores()}, // unjudged
		},
	}
	thresholds := selection.Thresholds{MustKeep: 8.5, Usable: 7.0}

	results := ComputeDerived(sf, scoring.DefaultWeightTable(), thresholds, testLogger())

	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2 (unjudged scene excluded)", len(results))
	}
	if results[0].SceneIndex != 1 || results[0].Rank != 1 {
		t.Errorf("results[0] = %+v", results[0])
	}

	if sf.Scenes[0].Selection != string(selection.LevelMustKeep) {
		t.Errorf("scene 1 selection = %q, want MUST_KEEP", sf.Scenes[0].Selection)
	}
	if sf.Scenes[1].Selection != string(selection.LevelUsable) {
		t.Errorf("scene 2 selection = %q, want USABLE", sf.Scenes[1].Selection)
	}

	if sf.Scenes[2].CompositeScore != nil {
		t.Error("unjudged scene received a composite")
	}
	if sf.Scenes[2].ScoreError == "" {
		t.Error("unjudged scene should carry a score error")
	}
	// Raw inputs stay untouched.
	if sf.Scenes[2].Scores["impact"] != 0 {
		t.Error("raw scores were mutated")
	}
}

func TestComputeDerived_PerfectDimensionPromotes(t *testing.T) {
	scores := fullScores(2)
	scores["impact"] = 10

	sf := &scoring.ScoreFile{
		VideoID: "v1",
		Scenes:  []scoring.SceneEntry{{SceneNumber: 1, Scores: scores}},
	}
	thresholds := selection.Thresholds{MustKeep: 8.5, Usable: 7.0}

	ComputeDerived(sf, scoring.DefaultWeightTable(), thresholds, testLogger())

	if sf.Scenes[0].Selection != string(selection.LevelMustKeep) {
		t.Errorf("selection = %q, want MUST_KEEP via perfect dimension", sf.Scenes[0].Selection)
	}
}

func TestComputeDerived_Recompute(t *testing.T) {
	// Recomputing after a raw-score edit replaces the derived fields.
	sf := &scoring.ScoreFile{
		VideoID: "v1",
		Scenes:  []scoring.SceneEntry{{SceneNumber: 1, Scores: fullScores(9)}},
	}
	thresholds := selection.Thresholds{MustKeep: 8.5, Usable: 7.0}
	table := scoring.DefaultWeightTable()

	ComputeDerived(sf, table, thresholds, testLogger())
	if sf.Scenes[0].Selection != string(selection.LevelMustKeep) {
		t.Fatalf("initial selection = %q", sf.Scenes[0].Selection)
	}

	sf.Scenes[0].Scores = fullScores(5)
	ComputeDerived(sf, table, thresholds, testLogger())

	if sf.Scenes[0].Selection != string(selection.LevelDiscard) {
		t.Errorf("selection after edit = %q, want DISCARD", sf.Scenes[0].Selection)
	}
	if *sf.Scenes[0].CompositeScore != 5.0 {
		t.Errorf("composite after edit = %v, want 5.0", *sf.Scenes[0].CompositeScore)
	}
}

func TestRescore_EndToEnd(t *testing.T) {
	dir := t.TempDir()

	clipPath := filepath.Join(dir, "scene1.mp4")
	if err := os.WriteFile(clipPath, []byte("clip bytes"), 0644); err != nil {
		t.Fatalf("write clip: %v", err)
	}

	sf := &scoring.ScoreFile{
		VideoID:     "BV1abc",
		TotalScenes: 2,
		Scenes: []scoring.SceneEntry{
			{SceneNumber: 1, StartMs: 0, EndMs: 2000, ClipPath: clipPath, Category: "TYPE-A", Scores: fullScores(9)},
			{SceneNumber: 2, StartMs: 2000, EndMs: 4000, Scores: fullScores(3)},
		},
	}
	if err := sf.Save(filepath.Join(dir, ScoreFileName)); err != nil {
		t.Fatalf("seed score file: %v", err)
	}

	thresholds := selection.Thresholds{MustKeep: 8.5, Usable: 7.0}
	summary, err := Rescore(context.Background(), dir, scoring.DefaultWeightTable(), thresholds, nil, testLogger())
	if err != nil {
		t.Fatalf("Rescore() error = %v", err)
	}

	if summary.MustKeep != 1 || summary.Discard != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if summary.ScoredScenes != 2 {
		t.Errorf("ScoredScenes = %d, want 2", summary.ScoredScenes)
	}

	// Derived fields were persisted back in place.
	reloaded, err := scoring.LoadScoreFile(filepath.Join(dir, ScoreFileName))
	if err != nil {
		t.Fatalf("reload score file: %v", err)
	}
	if reloaded.Scenes[0].Selection != string(selection.LevelMustKeep) {
		t.Errorf("persisted selection = %q", reloaded.Scenes[0].Selection)
	}

	// The kept scene's clip was copied with its rank prefix and an EDL written.
	if _, err := os.Stat(filepath.Join(dir, BestShotsDirName, "01_scene1.mp4")); err != nil {
		t.Errorf("best shot missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "selects.edl")); err != nil {
		t.Errorf("EDL missing: %v", err)
	}

	summaryBytes, err := os.ReadFile(filepath.Join(dir, BestShotsDirName, "summary.json"))
	if err != nil {
		t.Fatalf("best shots summary missing: %v", err)
	}
	var shots []bestShotEntry
	if err := json.Unmarshal(summaryBytes, &shots); err != nil {
		t.Fatalf("parse best shots summary: %v", err)
	}
	if len(shots) != 1 || shots[0].Rank != 1 || shots[0].SceneIndex != 1 {
		t.Errorf("best shots summary = %+v", shots)
	}
}

func TestRescore_RejectsBadThresholds(t *testing.T) {
	dir := t.TempDir()
	sf := &scoring.ScoreFile{VideoID: "v", Scenes: []scoring.SceneEntry{{SceneNumber: 1, Scores: fullScores(5)}}}
	scorePath := filepath.Join(dir, ScoreFileName)
	if err := sf.Save(scorePath); err != nil {
		t.Fatalf("seed score file: %v", err)
	}
	before, _ := os.ReadFile(scorePath)

	bad := selection.Thresholds{MustKeep: 8.5, Usable: 9.0}
	if _, err := Rescore(context.Background(), dir, scoring.DefaultWeightTable(), bad, nil, testLogger()); err == nil {
		t.Fatal("Rescore() should reject usable > must-keep")
	}

	// Nothing was processed or rewritten.
	after, _ := os.ReadFile(scorePath)
	if string(before) != string(after) {
		t.Error("score file modified despite threshold validation failure")
	}
}

func TestRescore_MissingScoreFile(t *testing.T) {
	thresholds := selection.Thresholds{MustKeep: 8.5, Usable: 7.0}
	if _, err := Rescore(context.Background(), t.TempDir(), scoring.DefaultWeightTable(), thresholds, nil, testLogger()); err == nil {
		t.Error("Rescore() should fail without a scoring document")
	}
}
