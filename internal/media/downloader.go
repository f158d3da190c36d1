package media

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// VideoInfo is the metadata probe result for a remote video.
type VideoInfo struct {
	Title    string
	Uploader string
	Duration time.Duration
}

// Downloader acquires remote media. Network retry and backoff are the tool's
// concern, not ours.
type Downloader interface {
	ProbeInfo(ctx context.Context, url string) (*VideoInfo, error)
	FetchVideo(ctx context.Context, url, destPath string) error
	FetchAudio(ctx context.Context, url, destPath string) error
}

// YtDlp is the production Downloader backed by the yt-dlp CLI.
type YtDlp struct {
	bin    string
	logger *slog.Logger
}

// NewYtDlp resolves the yt-dlp binary.
func NewYtDlp(logger *slog.Logger) (*YtDlp, error) {
	bin := lookTool("yt-dlp")
	if bin == "" {
		return nil, fmt.Errorf("yt-dlp not found on PATH")
	}
	return &YtDlp{bin: bin, logger: logger}, nil
}

// ProbeInfo fetches title, uploader and duration without downloading media.
func (d *YtDlp) ProbeInfo(ctx context.Context, url string) (*VideoInfo, error) {
	result := runTool(ctx, d.logger, d.bin,
		"--print", "%(title)s",
		"--print", "%(uploader)s",
		"--print", "%(duration)s",
		"--no-download",
		url,
	)
	if !result.IsSuccess() {
		return nil, fmt.Errorf("yt-dlp probe exited %d: %s", result.ExitCode, result.StderrTail)
	}

	lines := strings.Split(strings.TrimSpace(result.Stdout), "\n")
	info := &VideoInfo{}
	if len(lines) > 0 {
		info.Title = strings.TrimSpace(lines[0])
	}
	if len(lines) > 1 {
		info.Uploader = strings.TrimSpace(lines[1])
	}
	if len(lines) > 2 {
		if secs, err := strconv.ParseFloat(strings.TrimSpace(lines[2]), 64); err == nil {
			info.Duration = time.Duration(secs * float64(time.Second))
		}
	}
	return info, nil
}

// FetchVideo downloads the best mp4 rendition to destPath. Existing files are
// kept so re-runs are idempotent.
func (d *YtDlp) FetchVideo(ctx context.Context, url, destPath string) error {
	if fileNonEmpty(destPath) {
		d.logger.Info("video already downloaded, skipping", "path", destPath)
		return nil
	}

	result := runTool(ctx, d.logger, d.bin,
		"-f", "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best",
		"-o", destPath,
		url,
	)
	if !result.IsSuccess() {
		return fmt.Errorf("yt-dlp download exited %d: %s", result.ExitCode, result.StderrTail)
	}
	if !fileNonEmpty(destPath) {
		return fmt.Errorf("yt-dlp reported success but %s is missing", destPath)
	}
	return nil
}

// FetchAudio downloads the best audio-only rendition to destPath.
func (d *YtDlp) FetchAudio(ctx context.Context, url, destPath string) error {
	if fileNonEmpty(destPath) {
		d.logger.Info("audio already downloaded, skipping", "path", destPath)
		return nil
	}

	result := runTool(ctx, d.logger, d.bin,
		"-f", "bestaudio[ext=m4a]/bestaudio",
		"--extract-audio", "--audio-format", "m4a",
		"-o", destPath,
		url,
	)
	if !result.IsSuccess() {
		return fmt.Errorf("yt-dlp audio download exited %d: %s", result.ExitCode, result.StderrTail)
	}
	if !fileNonEmpty(destPath) {
		return fmt.Errorf("yt-dlp reported success but %s is missing", destPath)
	}
	return nil
}

// ExtractVideoID derives a stable identifier from a watch URL. Unknown URL
// shapes fall back to a timestamped identifier.
func ExtractVideoID(url string) string {
	if strings.Contains(url, "bilibili.com") && strings.Contains(url, "/video/") {
		part := strings.SplitN(url, "/video/", 2)[1]
		part = strings.SplitN(part, "/", 2)[0]
		return strings.SplitN(part, "?", 2)[0]
	}
	if strings.Contains(url, "v=") {
		part := strings.SplitN(url, "v=", 2)[1]
		return strings.SplitN(part, "&", 2)[0]
	}
	if strings.Contains(url, "youtu.be/") {
		part := strings.SplitN(url, "youtu.be/", 2)[1]
		return strings.SplitN(part, "?", 2)[0]
	}
	return fmt.Sprintf("video_%d", time.Now().Unix())
}
