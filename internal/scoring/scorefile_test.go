package scoring

import (
	"path/filepath"
	"testing"
)

func TestScoreFile_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene_scores.json")

	composite := 8.1
	original := &ScoreFile{
		VideoID:     "BV1abc",
		URL:         "https://www.bilibili.com/video/BV1abc",
		TotalScenes: 2,
		Scenes: []SceneEntry{
			{
				SceneNumber: 1,
				StartMs:     0,
				EndMs:       4200,
				Category:    "TYPE-A",
				Scores: map[string]int{
					"aesthetic": 7, "credibility": 6, "impact": 9, "memorability": 8, "fun": 7,
				},
				Rationale:      "strong opening",
				CompositeScore: &composite,
				Selection:      "USABLE",
			},
			{
				SceneNumber: 2,
				StartMs:     4200,
				EndMs:       9000,
				Scores:      TemplateScores(),
			},
		},
	}

	if err := original.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := LoadScoreFile(path)
	if err != nil {
		t.Fatalf("LoadScoreFile() error = %v", err)
	}

	if loaded.VideoID != original.VideoID {
		t.Errorf("VideoID = %q, want %q", loaded.VideoID, original.VideoID)
	}
	if len(loaded.Scenes) != 2 {
		t.Fatalf("len(Scenes) = %d, want 2", len(loaded.Scenes))
	}
	if loaded.Scenes[0].Scores["impact"] != 9 {
		t.Errorf("scene 1 impact = %d, want 9", loaded.Scenes[0].Scores["impact"])
	}
	if loaded.Scenes[0].CompositeScore == nil || *loaded.Scenes[0].CompositeScore != composite {
		t.Errorf("scene 1 composite not preserved")
	}
	if loaded.Scenes[1].CompositeScore != nil {
		t.Errorf("unjudged scene should carry no composite")
	}
}

func TestSceneEntry_Record_ResolvesAliases(t *testing.T) {
	entry := SceneEntry{
		SceneNumber: 4,
		Category:    "TYPE-A",
		Scores: map[string]int{
			"aesthetics":   9,
			"credibility":  8,
			"impact":       9,
			"memorability": 10,
			"fun_interest": 8,
		},
	}

	record := entry.Record()
	if record.Category != CategoryHook {
		t.Errorf("Category = %q, want %q", record.Category, CategoryHook)
	}
	if record.Values[DimAesthetic] != 9 {
		t.Errorf("aesthetic = %d, want 9 (via aesthetics alias)", record.Values[DimAesthetic])
	}
	if record.Values[DimFun] != 8 {
		t.Errorf("fun = %d, want 8 (via fun_interest alias)", record.Values[DimFun])
	}
	if err := record.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestSceneEntry_Record_UnknownKeysIgnored(t *testing.T) {
	entry := SceneEntry{
		SceneNumber: 1,
		Scores:      map[string]int{"vibes": 10},
	}

	record := entry.Record()
	if len(record.Values) != 0 {
		t.Errorf("unknown score keys should be dropped, got %v", record.Values)
	}
	if err := record.Validate(); err == nil {
		t.Error("record with no canonical dimensions should not validate")
	}
}

func TestTemplateScores(t *testing.T) {
	scores := TemplateScores()
	if len(scores) != len(Dimensions) {
		t.Fatalf("len(TemplateScores()) = %d, want %d", len(scores), len(Dimensions))
	}
	for name, v := range scores {
		if v != 0 {
			t.Errorf("template score %q = %d, want 0", name, v)
		}
	}
}
