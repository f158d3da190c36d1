package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/clipsift/clipsift/internal/api"
	"github.com/clipsift/clipsift/internal/catalog"
	"github.com/clipsift/clipsift/internal/config"
	"github.com/clipsift/clipsift/internal/db"
	"github.com/clipsift/clipsift/internal/judge"
	"github.com/clipsift/clipsift/internal/logging"
	"github.com/clipsift/clipsift/internal/media"
	"github.com/clipsift/clipsift/internal/pipeline"
	"github.com/clipsift/clipsift/internal/report"
	"github.com/clipsift/clipsift/internal/scoring"
	"github.com/clipsift/clipsift/internal/selection"
	"github.com/clipsift/clipsift/internal/subtitle"
)

const outputDirConfigKey = "output_dir"

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		printUsage()
		return fmt.Errorf("no command given")
	}

	switch args[0] {
	case "analyze":
		return runAnalyze(args[1:])
	case "score":
		return runScore(args[1:])
	case "serve":
		return runServe(args[1:])
	case "setup":
		return runSetup(args[1:])
	case "version":
		fmt.Printf("clipsift %s (built %s, commit %s)\n", config.Version, config.BuildTime, config.GitCommit)
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `usage: clipsift <command> [flags]

commands:
  analyze <url>    download a video, detect scenes, acquire a transcript, and score
  score [dir]      recompute composites and selection from an edited scene_scores.json
  serve            start the local catalog browse API
  setup            check external tools and persist the output directory
  version          print version information`)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	return ctx, cancel
}

func runAnalyze(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	sceneThreshold := fs.Float64("threshold", config.DefaultSceneThreshold, "scene detection sensitivity")
	mustKeep := fs.Float64("must-keep", config.DefaultMustKeepThreshold, "MUST_KEEP composite threshold")
	usable := fs.Float64("usable", config.DefaultUsableThreshold, "USABLE composite threshold")
	weightsPath := fs.String("weights", "", "YAML weight table override")
	outputDir := fs.String("o", "", "output base directory")
	useJudge := fs.Bool("judge", false, "score scenes with the configured AI judge")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("analyze: exactly one video URL is required")
	}
	url := fs.Arg(0)

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.SetThresholds(*mustKeep, *usable); err != nil {
		return err
	}
	cfg.SetSceneThreshold(*sceneThreshold)
	if *outputDir != "" {
		cfg.SetOutputDir(*outputDir)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting clipsift analyze", "version", config.Version, "url", url)

	weights, err := loadWeights(*weightsPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := catalog.NewRepository(database.Conn())
	catalogSvc := catalog.NewService(repo, logger)

	ctx, cancel := signalContext()
	defer cancel()

	if cfg.OutputDir() == "" {
		if persisted, err := repo.GetConfig(ctx, outputDirConfigKey); err == nil && persisted != "" {
			cfg.SetOutputDir(persisted)
		}
	}
	if cfg.OutputDir() == "" {
		cfg.SetOutputDir(config.DefaultOutputDir())
	}

	downloader, err := media.NewYtDlp(logger)
	if err != nil {
		return err
	}
	detector, err := media.NewSceneDetect(logger)
	if err != nil {
		return err
	}
	ffmpeg, err := media.NewFFmpeg(logger)
	if err != nil {
		return err
	}

	chain, err := buildChain(cfg, ffmpeg, logger)
	if err != nil {
		return err
	}

	var sceneJudge judge.Judge
	if *useJudge {
		sceneJudge, err = judge.NewOpenAIJudge(cfg.JudgeAPIKey(), cfg.JudgeBaseURL(), cfg.JudgeModel(), logger)
		if err != nil {
			return err
		}
	}

	analyzer, err := pipeline.NewAnalyzer(pipeline.AnalyzerDeps{
		Config:     cfg,
		Catalog:    catalogSvc,
		Downloader: downloader,
		Detector:   detector,
		FFmpeg:     ffmpeg,
		Chain:      chain,
		Judge:      sceneJudge,
		Renderer:   report.NewLogRenderer(logger),
		Weights:    weights,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	summary, err := analyzer.Analyze(ctx, url)
	if err != nil {
		return err
	}

	if err := repo.SetConfig(ctx, outputDirConfigKey, cfg.OutputDir()); err != nil {
		logger.Warn("persisting output dir failed", "error", err)
	}

	fmt.Printf("analysis written to %s\n", summary.OutputDir)
	if sceneJudge == nil {
		fmt.Printf("fill in %s and run: clipsift score %q\n", pipeline.ScoreFileName, summary.OutputDir)
	}
	return nil
}

func runScore(args []string) error {
	fs := flag.NewFlagSet("score", flag.ExitOnError)
	mustKeep := fs.Float64("must-keep", config.DefaultMustKeepThreshold, "MUST_KEEP composite threshold")
	usable := fs.Float64("usable", config.DefaultUsableThreshold, "USABLE composite threshold")
	weightsPath := fs.String("weights", "", "YAML weight table override")
	fs.Parse(args)

	// Accepts the analysis directory or the scoring file itself.
	dir := "."
	if fs.NArg() > 0 {
		dir = fs.Arg(0)
		if filepath.Base(dir) == pipeline.ScoreFileName {
			dir = filepath.Dir(dir)
		}
	}

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.NewLogger(cfg.LogLevel())

	weights, err := loadWeights(*weightsPath)
	if err != nil {
		return err
	}
	thresholds := selection.Thresholds{MustKeep: *mustKeep, Usable: *usable}

	ctx, cancel := signalContext()
	defer cancel()

	summary, err := pipeline.Rescore(ctx, dir, weights, thresholds, report.NewLogRenderer(logger), logger)
	if err != nil {
		return err
	}

	fmt.Printf("scored %d/%d scenes: %d MUST_KEEP, %d USABLE, %d DISCARD\n",
		summary.ScoredScenes, summary.TotalScenes, summary.MustKeep, summary.Usable, summary.Discard)
	return nil
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	port := fs.Int("port", 0, "HTTP port (overrides CLIPSIFT_PORT)")
	fs.Parse(args)

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.NewLogger(cfg.LogLevel())

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := catalog.NewRepository(database.Conn())
	catalogSvc := catalog.NewService(repo, logger)

	ctx, cancel := signalContext()
	defer cancel()

	outputDir := cfg.OutputDir()
	if outputDir == "" {
		if persisted, err := repo.GetConfig(ctx, outputDirConfigKey); err == nil && persisted != "" {
			outputDir = persisted
		} else {
			outputDir = config.DefaultOutputDir()
		}
	}

	listenPort := cfg.Port()
	if *port != 0 {
		listenPort = *port
	}

	server := api.NewServer(api.ServerConfig{
		Port:           listenPort,
		OutputDir:      outputDir,
		CatalogService: catalogSvc,
		Logger:         logger,
		StartTime:      time.Now(),
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("clipsift catalog API listening on http://%s\n", server.Addr())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}

func runSetup(args []string) error {
	fs := flag.NewFlagSet("setup", flag.ExitOnError)
	outputDir := fs.String("o", "", "output base directory to persist")
	fs.Parse(args)

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.NewLogger(cfg.LogLevel())

	checkTool(logger, "yt-dlp", func() error { _, err := media.NewYtDlp(logger); return err })
	checkTool(logger, "scenedetect", func() error { _, err := media.NewSceneDetect(logger); return err })
	checkTool(logger, "ffmpeg/ffprobe", func() error { _, err := media.NewFFmpeg(logger); return err })
	checkTool(logger, "recognizers", func() error {
		_, err := media.NewRecognizer(media.RecognizerConfig{Logger: logger})
		return err
	})

	if cfg.JudgeAPIKey() == "" {
		fmt.Printf("  -  AI judge: %s not set, analyze -judge will be unavailable\n", config.EnvJudgeAPIKey)
	} else {
		fmt.Printf("  ok AI judge: configured (model %s)\n", cfg.JudgeModel())
	}

	if *outputDir == "" {
		return nil
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := catalog.NewRepository(database.Conn())
	if err := repo.SetConfig(context.Background(), outputDirConfigKey, *outputDir); err != nil {
		return err
	}
	fmt.Printf("  ok output dir persisted: %s\n", *outputDir)
	return nil
}

func checkTool(logger *slog.Logger, name string, probe func() error) {
	if err := probe(); err != nil {
		fmt.Printf("  -  %s: %v\n", name, err)
		return
	}
	fmt.Printf("  ok %s\n", name)
}

func loadWeights(path string) (scoring.WeightTable, error) {
	if path == "" {
		return scoring.DefaultWeightTable(), nil
	}
	return scoring.LoadWeightTable(path)
}

// buildChain assembles the four transcript tiers in cost order with their
// per-tier time budgets.
func buildChain(cfg *config.EnvConfig, ffmpeg media.FFmpeg, logger *slog.Logger) (*subtitle.Chain, error) {
	recognizer, err := media.NewRecognizer(media.RecognizerConfig{Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("recognizers unavailable: %w", err)
	}

	tiers := []subtitle.Tier{
		subtitle.NewCaptionClient(cfg.CaptionAPIURL(), logger),
		subtitle.NewEmbeddedTier(ffmpeg, logger),
		subtitle.NewBurnedInTier(ffmpeg, recognizer, cfg.OCRSampleInterval(), cfg.OCRMinCoverage(), logger),
		subtitle.NewSpeechTier(ffmpeg, recognizer, logger),
	}
	budgets := map[string]time.Duration{
		subtitle.TierPlatformCaptions: cfg.BudgetCaptions(),
		subtitle.TierEmbedded:         cfg.BudgetEmbedded(),
		subtitle.TierBurnedIn:         cfg.BudgetOCR(),
		subtitle.TierSpeech:           cfg.BudgetSpeech(),
	}
	return subtitle.NewChain(tiers, budgets, logger), nil
}
