package selection

import (
	"os"
	"path/filepath"
	"testing"
)

func writeClip(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("clip data"), 0644); err != nil {
		t.Fatalf("write clip: %v", err)
	}
	return path
}

func TestCopyBestShots(t *testing.T) {
	srcDir := t.TempDir()
	destDir := filepath.Join(t.TempDir(), "best_shots")

	clip2 := writeClip(t, srcDir, "video-Scene-002.mp4")
	clip5 := writeClip(t, srcDir, "video-Scene-005.mp4")

	results := []Result{
		{SceneIndex: 5, Composite: 9.2, Level: LevelMustKeep, Rank: 1},
		{SceneIndex: 2, Composite: 7.4, Level: LevelUsable, Rank: 2},
	}
	clipPaths := map[int]string{2: clip2, 5: clip5}

	copied, err := CopyBestShots(results, clipPaths, destDir, nil)
	if err != nil {
		t.Fatalf("CopyBestShots() error = %v", err)
	}
	if copied != 2 {
		t.Errorf("copied = %d, want 2", copied)
	}

	for _, name := range []string{"01_video-Scene-005.mp4", "02_video-Scene-002.mp4"} {
		if _, err := os.Stat(filepath.Join(destDir, name)); err != nil {
			t.Errorf("expected %s in best shots dir: %v", name, err)
		}
	}
}

func TestCopyBestShots_RemovesStaleClips(t *testing.T) {
	srcDir := t.TempDir()
	destDir := t.TempDir()

	writeClip(t, destDir, "01_old.mp4")
	clip := writeClip(t, srcDir, "scene.mp4")

	results := []Result{{SceneIndex: 1, Rank: 1, Level: LevelMustKeep}}
	copied, err := CopyBestShots(results, map[int]string{1: clip}, destDir, nil)
	if err != nil {
		t.Fatalf("CopyBestShots() error = %v", err)
	}
	if copied != 1 {
		t.Errorf("copied = %d, want 1", copied)
	}

	if _, err := os.Stat(filepath.Join(destDir, "01_old.mp4")); !os.IsNotExist(err) {
		t.Error("stale clip from previous run was not removed")
	}
}

func TestCopyBestShots_SkipsMissingClips(t *testing.T) {
	destDir := t.TempDir()

	results := []Result{
		{SceneIndex: 1, Rank: 1, Level: LevelMustKeep},
		{SceneIndex: 2, Rank: 2, Level: LevelUsable},
	}
	clipPaths := map[int]string{1: filepath.Join(t.TempDir(), "gone.mp4")}

	copied, err := CopyBestShots(results, clipPaths, destDir, nil)
	if err != nil {
		t.Fatalf("CopyBestShots() error = %v", err)
	}
	if copied != 0 {
		t.Errorf("copied = %d, want 0", copied)
	}
}
