package media

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Boundary is one detected scene interval.
type Boundary struct {
	Index    int
	StartMs  int
	EndMs    int
	ClipPath string
}

// SceneDetector finds shot boundaries and optionally splits the video into
// per-scene clips.
type SceneDetector interface {
	Detect(ctx context.Context, videoPath, outDir string, threshold float64, split bool) ([]Boundary, error)
}

// SceneDetectCLI is the production detector backed by the scenedetect CLI.
type SceneDetectCLI struct {
	bin    string
	logger *slog.Logger
}

// NewSceneDetect resolves the scenedetect binary.
func NewSceneDetect(logger *slog.Logger) (*SceneDetectCLI, error) {
	bin := lookTool("scenedetect")
	if bin == "" {
		return nil, fmt.Errorf("scenedetect not found on PATH")
	}
	return &SceneDetectCLI{bin: bin, logger: logger}, nil
}

// Detect runs adaptive detection at the given sensitivity, writes the scene
// list CSV into outDir, and parses it into ordered boundaries. With split set
// it also writes one clip per scene and attaches clip paths by scene order.
func (d *SceneDetectCLI) Detect(ctx context.Context, videoPath, outDir string, threshold float64, split bool) ([]Boundary, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("create scenes dir: %w", err)
	}

	args := []string{
		"-i", videoPath,
		"-o", outDir,
		"detect-adaptive", "-t", strconv.FormatFloat(threshold, 'f', -1, 64),
		"list-scenes",
	}
	if split {
		args = append(args, "split-video")
	}

	result := runTool(ctx, d.logger, d.bin, args...)
	if !result.IsSuccess() {
		return nil, fmt.Errorf("scenedetect exited %d: %s", result.ExitCode, result.StderrTail)
	}

	csvPath, err := findSceneCSV(outDir)
	if err != nil {
		return nil, err
	}
	boundaries, err := parseSceneCSV(csvPath)
	if err != nil {
		return nil, err
	}

	if split {
		clips, err := filepath.Glob(filepath.Join(outDir, "*.mp4"))
		if err == nil {
			sort.Strings(clips)
			for i := range boundaries {
				if i < len(clips) {
					boundaries[i].ClipPath = clips[i]
				}
			}
		}
	}

	d.logger.Info("scene detection complete", "scenes", len(boundaries), "threshold", threshold)
	return boundaries, nil
}

func findSceneCSV(outDir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(outDir, "*-Scenes.csv"))
	if err != nil || len(matches) == 0 {
		return "", fmt.Errorf("scenedetect produced no scene list CSV in %s", outDir)
	}
	sort.Strings(matches)
	return matches[0], nil
}

// parseSceneCSV reads a scenedetect scene list. The file carries an optional
// cut-list preamble before the header row, so rows are located by the
// "Scene Number" header rather than by position.
func parseSceneCSV(path string) ([]Boundary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scene list: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse scene list: %w", err)
	}

	startCol, endCol := -1, -1
	headerRow := -1
	for i, rec := range records {
		for j, field := range rec {
			switch strings.TrimSpace(field) {
			case "Start Time (seconds)":
				startCol = j
				headerRow = i
			case "End Time (seconds)":
				endCol = j
			}
		}
		if headerRow >= 0 {
			break
		}
	}
	if headerRow < 0 || startCol < 0 || endCol < 0 {
		return nil, fmt.Errorf("scene list %s missing expected header", path)
	}

	var boundaries []Boundary
	for _, rec := range records[headerRow+1:] {
		if len(rec) <= startCol || len(rec) <= endCol {
			continue
		}
		start, err1 := strconv.ParseFloat(strings.TrimSpace(rec[startCol]), 64)
		end, err2 := strconv.ParseFloat(strings.TrimSpace(rec[endCol]), 64)
		if err1 != nil || err2 != nil {
			continue
		}
		if end <= start {
			continue
		}
		boundaries = append(boundaries, Boundary{
			Index:   len(boundaries) + 1,
			StartMs: int(start * 1000),
			EndMs:   int(end * 1000),
		})
	}

	if len(boundaries) == 0 {
		return nil, fmt.Errorf("scene list %s contains no scenes", path)
	}
	return boundaries, nil
}
