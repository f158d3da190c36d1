package media

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
)

const defaultRecognizerModule = "clipsift_recognizers"

// OCRLine is one recognized text line in a frame.
type OCRLine struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// SpeechSegment is one recognized utterance with millisecond timestamps.
type SpeechSegment struct {
	StartMs    int     `json:"start_ms"`
	EndMs      int     `json:"end_ms"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Recognizer runs the companion Python recognizer CLIs (RapidOCR for frame
// text, FunASR for speech) as subprocesses with JSON output files.
type Recognizer interface {
	RecognizeFrame(ctx context.Context, imagePath string) ([]OCRLine, error)
	Transcribe(ctx context.Context, wavPath string) ([]SpeechSegment, error)
}

// RecognizerConfig holds the subprocess runner's configuration.
type RecognizerConfig struct {
	PythonPath string // path to python binary; empty = auto-detect
	ModuleName string // default "clipsift_recognizers"
	WorkDir    string // directory for --out JSON files; empty = fresh temp dir
	Logger     *slog.Logger
}

// PythonRecognizer is the production Recognizer implementation.
type PythonRecognizer struct {
	cfg    RecognizerConfig
	python string
}

// NewRecognizer creates a PythonRecognizer, resolving the Python binary path.
func NewRecognizer(cfg RecognizerConfig) (*PythonRecognizer, error) {
	python, err := resolvePython(cfg.PythonPath)
	if err != nil {
		return nil, fmt.Errorf("cannot locate python: %w", err)
	}
	if cfg.ModuleName == "" {
		cfg.ModuleName = defaultRecognizerModule
	}
	// A per-process temp dir keeps concurrent runs from clobbering each
	// other's --out files.
	if cfg.WorkDir == "" {
		dir, err := os.MkdirTemp("", "clipsift-recognizers-")
		if err != nil {
			return nil, fmt.Errorf("cannot create recognizer work dir: %w", err)
		}
		cfg.WorkDir = dir
	} else if err := os.MkdirAll(cfg.WorkDir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create recognizer work dir: %w", err)
	}
	return &PythonRecognizer{cfg: cfg, python: python}, nil
}

type ocrOutput struct {
	Lines []OCRLine `json:"lines"`
}

// RecognizeFrame runs OCR over one frame image.
func (r *PythonRecognizer) RecognizeFrame(ctx context.Context, imagePath string) ([]OCRLine, error) {
	outPath := filepath.Join(r.cfg.WorkDir, "ocr_result.json")

	result := runTool(ctx, r.cfg.Logger, r.python,
		"-m", r.cfg.ModuleName,
		"ocr",
		"--image", imagePath,
		"--out", outPath,
	)
	if !result.IsSuccess() {
		return nil, fmt.Errorf("ocr recognizer exited %d: %s", result.ExitCode, result.StderrTail)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("read ocr output: %w", err)
	}
	var out ocrOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse ocr output: %w", err)
	}
	return out.Lines, nil
}

type speechOutput struct {
	Language string          `json:"language,omitempty"`
	Segments []SpeechSegment `json:"segments"`
}

// Transcribe runs local speech recognition over a 16 kHz mono WAV file.
func (r *PythonRecognizer) Transcribe(ctx context.Context, wavPath string) ([]SpeechSegment, error) {
	outPath := filepath.Join(r.cfg.WorkDir, "speech_result.json")

	result := runTool(ctx, r.cfg.Logger, r.python,
		"-m", r.cfg.ModuleName,
		"speech",
		"--audio", wavPath,
		"--out", outPath,
	)
	if !result.IsSuccess() {
		return nil, fmt.Errorf("speech recognizer exited %d: %s", result.ExitCode, result.StderrTail)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("read speech output: %w", err)
	}
	var out speechOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse speech output: %w", err)
	}
	return out.Segments, nil
}

// resolvePython finds a usable python binary.
func resolvePython(preferred string) (string, error) {
	if preferred != "" {
		if p, err := exec.LookPath(preferred); err == nil {
			return p, nil
		}
		return "", fmt.Errorf("configured python %q not found", preferred)
	}
	for _, name := range []string{"python3", "python"} {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("no python binary found on PATH (tried python3, python)")
}
