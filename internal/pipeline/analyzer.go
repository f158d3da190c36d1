package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/clipsift/clipsift/internal/catalog"
	"github.com/clipsift/clipsift/internal/config"
	"github.com/clipsift/clipsift/internal/export"
	"github.com/clipsift/clipsift/internal/judge"
	"github.com/clipsift/clipsift/internal/logging"
	"github.com/clipsift/clipsift/internal/media"
	"github.com/clipsift/clipsift/internal/report"
	"github.com/clipsift/clipsift/internal/scoring"
	"github.com/clipsift/clipsift/internal/selection"
	"github.com/clipsift/clipsift/internal/subtitle"
)

// Analyzer wires the collaborators for one analysis run. All external effects
// go through interfaces so tests can run the full flow in-process.
type Analyzer struct {
	cfg        config.Config
	catalog    catalog.CatalogService
	downloader media.Downloader
	detector   media.SceneDetector
	ffmpeg     media.FFmpeg
	chain      *subtitle.Chain
	judge      judge.Judge
	renderer   report.Renderer
	weights    scoring.WeightTable
	logger     *slog.Logger
}

type AnalyzerDeps struct {
	Config     config.Config
	Catalog    catalog.CatalogService
	Downloader media.Downloader
	Detector   media.SceneDetector
	FFmpeg     media.FFmpeg
	Chain      *subtitle.Chain
	Judge      judge.Judge // nil means "write a scoring template for manual judgment"
	Renderer   report.Renderer
	Weights    scoring.WeightTable
	Logger     *slog.Logger
}

func NewAnalyzer(deps AnalyzerDeps) (*Analyzer, error) {
	if deps.Catalog == nil || deps.Downloader == nil || deps.Detector == nil ||
		deps.FFmpeg == nil || deps.Chain == nil || deps.Renderer == nil {
		return nil, fmt.Errorf("analyzer is missing a required collaborator")
	}
	if err := deps.Weights.Validate(); err != nil {
		return nil, err
	}
	thresholds := selection.Thresholds{
		MustKeep: deps.Config.MustKeepThreshold(),
		Usable:   deps.Config.UsableThreshold(),
	}
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}

	return &Analyzer{
		cfg:        deps.Config,
		catalog:    deps.Catalog,
		downloader: deps.Downloader,
		detector:   deps.Detector,
		ffmpeg:     deps.FFmpeg,
		chain:      deps.Chain,
		judge:      deps.Judge,
		renderer:   deps.Renderer,
		weights:    deps.Weights,
		logger:     logging.WithComponent(deps.Logger, "pipeline"),
	}, nil
}

// Analyze runs the full flow for one URL. Download and scene detection
// failures are fatal; transcript acquisition and per-scene scoring failures
// degrade the run instead of aborting it.
func (a *Analyzer) Analyze(ctx context.Context, url string) (*report.Summary, error) {
	video, outputDir, err := a.ingest(ctx, url)
	if err != nil {
		return nil, fatal(StageIngest, err)
	}
	logger := logging.WithVideoID(a.logger, video.ID)

	scenes, err := a.detectScenes(ctx, video, outputDir)
	if err != nil {
		return nil, fatal(StageDetect, err)
	}

	tier := a.acquireTranscript(ctx, video, outputDir, logger)

	a.extractFrames(ctx, video, scenes, outputDir, logger)

	// Re-read scenes so frame paths written during extraction are visible.
	scenes, err = a.catalog.GetScenes(ctx, video.ID)
	if err != nil {
		return nil, fatal(StageFrames, err)
	}

	scoreFile, err := a.buildScoreFile(ctx, video, scenes)
	if err != nil {
		return nil, fatal(StageScore, err)
	}
	scorePath := filepath.Join(outputDir, ScoreFileName)

	if a.judge == nil {
		if err := scoreFile.Save(scorePath); err != nil {
			return nil, fatal(StageScore, err)
		}
		logger.Info("scoring template written, judge not configured",
			"path", scorePath, "scenes", len(scoreFile.Scenes))
		return &report.Summary{
			VideoID:        video.ID,
			Title:          video.Title,
			OutputDir:      outputDir,
			TranscriptTier: tier,
			TotalScenes:    len(scenes),
		}, nil
	}

	a.scoreScenes(ctx, video, scoreFile, logger)

	thresholds := selection.Thresholds{
		MustKeep: a.cfg.MustKeepThreshold(),
		Usable:   a.cfg.UsableThreshold(),
	}
	results := ComputeDerived(scoreFile, a.weights, thresholds, logger)

	if err := scoreFile.Save(scorePath); err != nil {
		return nil, fatal(StageClassify, err)
	}

	if err := Finalize(scoreFile, results, video.Title, outputDir, logger); err != nil {
		logger.Warn("finalizing artifacts failed", "error", err)
	}

	summary := summarize(video, outputDir, tier, scoreFile, results)
	if err := a.renderer.Render(ctx, *summary); err != nil {
		return summary, &StageError{Stage: StageRenderReport, Err: err}
	}
	return summary, nil
}

func (a *Analyzer) ingest(ctx context.Context, url string) (*catalog.Video, string, error) {
	probeCtx, cancel := context.WithTimeout(ctx, a.cfg.ProbeTimeout())
	info, err := a.downloader.ProbeInfo(probeCtx, url)
	cancel()
	if err != nil {
		a.logger.Warn("metadata probe failed, using fallback naming", "error", err)
		info = &media.VideoInfo{}
	}

	videoID := media.ExtractVideoID(url)
	folderName := export.FolderName(info.Uploader, info.Title, videoID)

	base := a.cfg.OutputDir()
	if base == "" {
		base = config.DefaultOutputDir()
	}
	outputDir := filepath.Join(base, folderName)
	if err := export.ValidateOutputDir(outputDir); err != nil {
		return nil, "", err
	}

	video, err := a.catalog.RegisterVideo(ctx, url, info.Title, info.Uploader, folderName)
	if err != nil {
		return nil, "", err
	}

	// Re-runs over the same URL reuse a previously downloaded file.
	videoPath := filepath.Join(outputDir, "video.mp4")
	if st, statErr := os.Stat(videoPath); statErr == nil && st.Size() > 0 {
		a.logger.Info("media already downloaded, reusing", "path", videoPath)
	} else {
		dlCtx, cancel := context.WithTimeout(ctx, a.cfg.DownloadTimeout())
		err = a.downloader.FetchVideo(dlCtx, url, videoPath)
		cancel()
		if err != nil {
			return nil, "", fmt.Errorf("download: %w", err)
		}
	}

	duration, err := a.ffmpeg.ProbeDuration(ctx, videoPath)
	if err != nil {
		a.logger.Warn("duration probe failed", "error", err)
		duration = info.Duration
	}
	if err := a.catalog.AttachMedia(ctx, video.ID, videoPath, "", duration); err != nil {
		return nil, "", err
	}
	video.VideoPath = videoPath
	video.Duration = duration
	return video, outputDir, nil
}

func (a *Analyzer) detectScenes(ctx context.Context, video *catalog.Video, outputDir string) ([]catalog.Scene, error) {
	detectCtx, cancel := context.WithTimeout(ctx, a.cfg.DetectTimeout())
	defer cancel()

	boundaries, err := a.detector.Detect(detectCtx, video.VideoPath, filepath.Join(outputDir, "scenes"), a.cfg.SceneThreshold(), true)
	if err != nil {
		return nil, err
	}

	scenes := make([]catalog.Scene, 0, len(boundaries))
	for _, b := range boundaries {
		scenes = append(scenes, catalog.Scene{
			Index:    b.Index,
			StartMs:  b.StartMs,
			EndMs:    b.EndMs,
			ClipPath: b.ClipPath,
		})
	}
	if err := a.catalog.StoreScenes(ctx, video.ID, scenes); err != nil {
		return nil, err
	}
	return scenes, nil
}

// acquireTranscript runs the tier chain and persists the winner. Total chain
// failure leaves the video without a transcript; scoring proceeds on frames
// alone. The producing tier name is returned for the summary.
func (a *Analyzer) acquireTranscript(ctx context.Context, video *catalog.Video, outputDir string, logger *slog.Logger) string {
	transcript, err := a.chain.Run(ctx, subtitle.Asset{
		VideoID:   video.ID,
		URL:       video.URL,
		VideoPath: video.VideoPath,
	})
	if err != nil {
		if errors.Is(err, subtitle.ErrNoTranscript) {
			logger.Warn("no transcript available, continuing without one", "stage", StageTranscript)
		} else {
			logger.Warn("transcript acquisition aborted", "stage", StageTranscript, "error", err)
		}
		return ""
	}

	segments := make([]catalog.TranscriptSegment, 0, len(transcript.Segments))
	for _, s := range transcript.Segments {
		segments = append(segments, catalog.TranscriptSegment{
			StartMs:    s.StartMs,
			EndMs:      s.EndMs,
			Text:       s.Text,
			Confidence: s.Confidence,
		})
	}
	if err := a.catalog.StoreTranscript(ctx, video.ID, transcript.SourceTier, segments); err != nil {
		logger.Warn("storing transcript failed", "error", err)
		return ""
	}
	if _, err := a.catalog.WriteTranscriptFile(ctx, video.ID, outputDir); err != nil {
		logger.Warn("writing transcript file failed", "error", err)
	}
	srtPath := filepath.Join(outputDir, "subtitle.srt")
	if err := os.WriteFile(srtPath, []byte(subtitle.FormatSRT(transcript.Segments)), 0644); err != nil {
		logger.Warn("writing SRT file failed", "error", err)
	}
	return transcript.SourceTier
}

// extractFrames writes one representative frame per scene. A scene that has
// its own clip uses the clip's first frame; otherwise the frame is cut from
// the source at the scene start. Per-scene failures are logged and skipped.
func (a *Analyzer) extractFrames(ctx context.Context, video *catalog.Video, scenes []catalog.Scene, outputDir string, logger *slog.Logger) {
	framesDir := filepath.Join(outputDir, "frames")
	if err := os.MkdirAll(framesDir, 0755); err != nil {
		logger.Warn("creating frames dir failed", "error", err)
		return
	}

	for _, scene := range scenes {
		framePath := filepath.Join(framesDir, fmt.Sprintf("scene_%03d.jpg", scene.Index))

		var err error
		if scene.ClipPath != "" {
			err = a.ffmpeg.ExtractFirstFrame(ctx, scene.ClipPath, framePath)
		} else {
			err = a.ffmpeg.ExtractFrame(ctx, video.VideoPath, time.Duration(scene.StartMs)*time.Millisecond, framePath)
		}
		if err != nil {
			logging.WithScene(logger, scene.Index).Warn("frame extraction failed", "error", err)
			continue
		}
		if err := a.catalog.SetSceneFrame(ctx, scene.ID, framePath); err != nil {
			logging.WithScene(logger, scene.Index).Warn("recording frame path failed", "error", err)
		}
	}
}

func (a *Analyzer) buildScoreFile(ctx context.Context, video *catalog.Video, scenes []catalog.Scene) (*scoring.ScoreFile, error) {
	sceneText, err := a.catalog.SceneText(ctx, video.ID)
	if err != nil {
		return nil, err
	}

	sf := &scoring.ScoreFile{
		VideoID:     video.ID,
		URL:         video.URL,
		TotalScenes: len(scenes),
	}
	for _, scene := range scenes {
		sf.Scenes = append(sf.Scenes, scoring.SceneEntry{
			SceneNumber: scene.Index,
			StartMs:     scene.StartMs,
			EndMs:       scene.EndMs,
			ClipPath:    scene.ClipPath,
			FramePath:   scene.FramePath,
			Description: sceneText[scene.Index],
			Scores:      scoring.TemplateScores(),
		})
	}
	return sf, nil
}

// scoreScenes asks the judge to rate every scene. A scene without a frame is
// judged on its transcript text alone; one with neither is skipped. A scene
// whose judgment fails keeps its template scores and records the error; the
// run continues.
func (a *Analyzer) scoreScenes(ctx context.Context, video *catalog.Video, sf *scoring.ScoreFile, logger *slog.Logger) {
	for i := range sf.Scenes {
		entry := &sf.Scenes[i]
		sceneLogger := logging.WithScene(logger, entry.SceneNumber)

		if entry.FramePath == "" && entry.Description == "" {
			entry.ScoreError = "no frame or transcript available"
			sceneLogger.Warn("scene skipped by judge, nothing to rate")
			continue
		}

		record, err := a.judge.ScoreScene(ctx, judge.Scene{
			VideoTitle: video.Title,
			SceneIndex: entry.SceneNumber,
			FramePath:  entry.FramePath,
			Transcript: entry.Description,
		})
		if err != nil {
			entry.ScoreError = err.Error()
			sceneLogger.Warn("judging failed", "error", err)
			continue
		}

		scores := make(map[string]int, len(record.Values))
		for dim, v := range record.Values {
			scores[string(dim)] = v
		}
		entry.Scores = scores
		entry.Category = string(record.Category)
		entry.Rationale = record.Rationale
		entry.ScoreError = ""
	}
}

func summarize(video *catalog.Video, outputDir, tier string, sf *scoring.ScoreFile, results []selection.Result) *report.Summary {
	s := &report.Summary{
		VideoID:        video.ID,
		Title:          video.Title,
		OutputDir:      outputDir,
		TranscriptTier: tier,
		TotalScenes:    len(sf.Scenes),
		Results:        results,
	}
	for _, entry := range sf.Scenes {
		if entry.ScoreError != "" {
			s.FailedScenes++
		} else if entry.CompositeScore != nil {
			s.ScoredScenes++
		}
	}
	for _, r := range results {
		switch r.Level {
		case selection.LevelMustKeep:
			s.MustKeep++
		case selection.LevelUsable:
			s.Usable++
		case selection.LevelDiscard:
			s.Discard++
		}
	}
	return s
}
