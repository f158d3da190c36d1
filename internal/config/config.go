// Package config provides configuration management for clipsift.
// Configuration is loaded from environment variables with sensible defaults;
// a .env file in the working directory is honoured if present.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	// Default values
	DefaultLogLevel          = "info"
	DefaultDataDir           = ".clipsift"
	DefaultSceneThreshold    = 27.0
	DefaultMustKeepThreshold = 8.5
	DefaultUsableThreshold   = 7.0
	DefaultOCRSampleSeconds  = 2
	DefaultOCRMinCoverage    = 0.3
	DefaultPort              = 8787

	// Environment variable names
	EnvLogLevel      = "CLIPSIFT_LOG_LEVEL"
	EnvDataDir       = "CLIPSIFT_DATA_DIR"
	EnvOutputDir     = "CLIPSIFT_OUTPUT_DIR"
	EnvPort          = "CLIPSIFT_PORT"
	EnvJudgeAPIKey   = "CLIPSIFT_JUDGE_API_KEY"
	EnvJudgeBaseURL  = "CLIPSIFT_JUDGE_BASE_URL"
	EnvJudgeModel    = "CLIPSIFT_JUDGE_MODEL"
	EnvCaptionAPIURL = "CLIPSIFT_CAPTION_API_URL"

	// Per-tier transcript budgets, seconds
	EnvBudgetCaptions = "CLIPSIFT_BUDGET_CAPTIONS"
	EnvBudgetEmbedded = "CLIPSIFT_BUDGET_EMBEDDED"
	EnvBudgetOCR      = "CLIPSIFT_BUDGET_OCR"
	EnvBudgetSpeech   = "CLIPSIFT_BUDGET_SPEECH"

	// Database filename
	DBFilename = "clipsift.db"

	// Tier budget defaults, seconds
	DefaultBudgetCaptions = 60
	DefaultBudgetEmbedded = 120
	DefaultBudgetOCR      = 600
	DefaultBudgetSpeech   = 1800

	// External tool timeouts, seconds
	DefaultDownloadTimeout = 1800
	DefaultDetectTimeout   = 900
	DefaultProbeTimeout    = 30

	DefaultJudgeModel = "gpt-4o-mini"
)

// Config defines the application configuration interface
type Config interface {
	LogLevel() string
	DataDir() string
	DBPath() string
	OutputDir() string
	Port() int

	SceneThreshold() float64
	MustKeepThreshold() float64
	UsableThreshold() float64
	OCRSampleInterval() time.Duration
	OCRMinCoverage() float64

	BudgetCaptions() time.Duration
	BudgetEmbedded() time.Duration
	BudgetOCR() time.Duration
	BudgetSpeech() time.Duration
	DownloadTimeout() time.Duration
	DetectTimeout() time.Duration
	ProbeTimeout() time.Duration

	JudgeAPIKey() string
	JudgeBaseURL() string
	JudgeModel() string
	CaptionAPIURL() string
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	logLevel  string
	dataDir   string
	outputDir string
	port      int

	sceneThreshold    float64
	mustKeepThreshold float64
	usableThreshold   float64

	budgetCaptions time.Duration
	budgetEmbedded time.Duration
	budgetOCR      time.Duration
	budgetSpeech   time.Duration

	judgeAPIKey   string
	judgeBaseURL  string
	judgeModel    string
	captionAPIURL string
}

// New creates a new EnvConfig with defaults and environment variable overrides.
// It validates threshold consistency: UsableThreshold must not exceed
// MustKeepThreshold, since classification would otherwise be incoherent.
func New() (*EnvConfig, error) {
	// Best effort; absence of a .env file is not an error.
	_ = godotenv.Load()

	cfg := &EnvConfig{
		logLevel:          DefaultLogLevel,
		dataDir:           defaultDataDir(),
		port:              DefaultPort,
		sceneThreshold:    DefaultSceneThreshold,
		mustKeepThreshold: DefaultMustKeepThreshold,
		usableThreshold:   DefaultUsableThreshold,
		budgetCaptions:    DefaultBudgetCaptions * time.Second,
		budgetEmbedded:    DefaultBudgetEmbedded * time.Second,
		budgetOCR:         DefaultBudgetOCR * time.Second,
		budgetSpeech:      DefaultBudgetSpeech * time.Second,
		judgeModel:        DefaultJudgeModel,
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}
	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}
	if od := os.Getenv(EnvOutputDir); od != "" {
		cfg.outputDir = od
	}
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	for _, b := range []struct {
		env  string
		dest *time.Duration
	}{
		{EnvBudgetCaptions, &cfg.budgetCaptions},
		{EnvBudgetEmbedded, &cfg.budgetEmbedded},
		{EnvBudgetOCR, &cfg.budgetOCR},
		{EnvBudgetSpeech, &cfg.budgetSpeech},
	} {
		v := os.Getenv(b.env)
		if v == "" {
			continue
		}
		seconds, err := strconv.Atoi(v)
		if err != nil || seconds < 1 {
			return nil, fmt.Errorf("invalid %s: must be a positive number of seconds", b.env)
		}
		*b.dest = time.Duration(seconds) * time.Second
	}

	cfg.judgeAPIKey = os.Getenv(EnvJudgeAPIKey)
	cfg.judgeBaseURL = os.Getenv(EnvJudgeBaseURL)
	if m := os.Getenv(EnvJudgeModel); m != "" {
		cfg.judgeModel = m
	}
	cfg.captionAPIURL = os.Getenv(EnvCaptionAPIURL)

	if err := ValidateThresholds(cfg.mustKeepThreshold, cfg.usableThreshold); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ValidateThresholds checks the selection threshold invariant. It is also
// called again after CLI flag overrides are applied.
func ValidateThresholds(mustKeep, usable float64) error {
	if usable > mustKeep {
		return fmt.Errorf("invalid thresholds: usable threshold %.2f exceeds must-keep threshold %.2f", usable, mustKeep)
	}
	return nil
}

// SetThresholds applies caller-supplied threshold overrides.
func (c *EnvConfig) SetThresholds(mustKeep, usable float64) error {
	if err := ValidateThresholds(mustKeep, usable); err != nil {
		return err
	}
	c.mustKeepThreshold = mustKeep
	c.usableThreshold = usable
	return nil
}

// SetSceneThreshold applies a caller-supplied detection sensitivity.
func (c *EnvConfig) SetSceneThreshold(t float64) {
	c.sceneThreshold = t
}

// SetOutputDir applies a caller-supplied output directory.
func (c *EnvConfig) SetOutputDir(dir string) {
	c.outputDir = dir
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// OutputDir returns the configured output directory. Empty means "not yet
// configured"; the persisted value from the catalog config table applies then.
func (c *EnvConfig) OutputDir() string {
	return c.outputDir
}

// Port returns the HTTP port for the serve command
func (c *EnvConfig) Port() int {
	return c.port
}

func (c *EnvConfig) SceneThreshold() float64 {
	return c.sceneThreshold
}

func (c *EnvConfig) MustKeepThreshold() float64 {
	return c.mustKeepThreshold
}

func (c *EnvConfig) UsableThreshold() float64 {
	return c.usableThreshold
}

func (c *EnvConfig) OCRSampleInterval() time.Duration {
	return DefaultOCRSampleSeconds * time.Second
}

func (c *EnvConfig) OCRMinCoverage() float64 {
	return DefaultOCRMinCoverage
}

func (c *EnvConfig) BudgetCaptions() time.Duration {
	return c.budgetCaptions
}

func (c *EnvConfig) BudgetEmbedded() time.Duration {
	return c.budgetEmbedded
}

func (c *EnvConfig) BudgetOCR() time.Duration {
	return c.budgetOCR
}

func (c *EnvConfig) BudgetSpeech() time.Duration {
	return c.budgetSpeech
}

func (c *EnvConfig) DownloadTimeout() time.Duration {
	return DefaultDownloadTimeout * time.Second
}

func (c *EnvConfig) DetectTimeout() time.Duration {
	return DefaultDetectTimeout * time.Second
}

func (c *EnvConfig) ProbeTimeout() time.Duration {
	return DefaultProbeTimeout * time.Second
}

func (c *EnvConfig) JudgeAPIKey() string {
	return c.judgeAPIKey
}

func (c *EnvConfig) JudgeBaseURL() string {
	return c.judgeBaseURL
}

func (c *EnvConfig) JudgeModel() string {
	return c.judgeModel
}

func (c *EnvConfig) CaptionAPIURL() string {
	return c.captionAPIURL
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// DefaultOutputDir is used when neither flag, environment, nor the persisted
// catalog setting supplies an output directory.
func DefaultOutputDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "video-analysis"
	}
	return filepath.Join(home, "Downloads", "video-analysis")
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
