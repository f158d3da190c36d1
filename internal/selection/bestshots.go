package selection

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// CopyBestShots copies the clip files of the selected subset into destDir with
// a rank-ordered naming scheme (01_<clip>, 02_<clip>, ...). Stale clips from a
// previous run are removed first so the directory always mirrors the latest
// ranking. Scenes whose clip file is missing are skipped with a warning.
func CopyBestShots(results []Result, clipPaths map[int]string, destDir string, logger *slog.Logger) (int, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return 0, fmt.Errorf("create best shots dir: %w", err)
	}

	stale, err := filepath.Glob(filepath.Join(destDir, "*.mp4"))
	if err == nil {
		for _, f := range stale {
			os.Remove(f)
		}
	}

	copied := 0
	for _, r := range results {
		src, ok := clipPaths[r.SceneIndex]
		if !ok || src == "" {
			continue
		}
		if _, err := os.Stat(src); err != nil {
			if logger != nil {
				logger.Warn("best shot clip missing, skipping", "scene_index", r.SceneIndex, "path", src)
			}
			continue
		}

		dst := filepath.Join(destDir, fmt.Sprintf("%02d_%s", r.Rank, filepath.Base(src)))
		if err := copyFile(src, dst); err != nil {
			return copied, fmt.Errorf("copy scene %d clip: %w", r.SceneIndex, err)
		}
		copied++
	}
	return copied, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
