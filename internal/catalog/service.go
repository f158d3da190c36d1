package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

type CatalogService interface {
	RegisterVideo(ctx context.Context, url, title, uploader, folderName string) (*Video, error)
	AttachMedia(ctx context.Context, videoID, videoPath, audioPath string, duration time.Duration) error
	StoreScenes(ctx context.Context, videoID string, scenes []Scene) error
	StoreTranscript(ctx context.Context, videoID, tier string, segments []TranscriptSegment) error
	SetSceneFrame(ctx context.Context, sceneID, framePath string) error
	GetVideo(ctx context.Context, id string) (*Video, error)
	GetVideos(ctx context.Context) ([]*Video, error)
	GetScenes(ctx context.Context, videoID string) ([]Scene, error)
	GetSegments(ctx context.Context, videoID string) ([]TranscriptSegment, error)
	SceneText(ctx context.Context, videoID string) (map[int]string, error)
	WriteTranscriptFile(ctx context.Context, videoID, dir string) (string, error)
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// RegisterVideo creates the catalog entry for a URL. Re-registering the same
// URL resets the previous run's scenes and transcript so the analysis can be
// repeated without duplicate rows.
func (s *Service) RegisterVideo(ctx context.Context, url, title, uploader, folderName string) (*Video, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("url is empty")
	}

	existing, err := s.repo.GetVideoByURL(ctx, url)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if err := s.repo.DeleteScenesByVideo(ctx, existing.ID); err != nil {
			return nil, err
		}
		if err := s.repo.DeleteSegmentsByVideo(ctx, existing.ID); err != nil {
			return nil, err
		}
		if s.logger != nil {
			s.logger.Info("video re-registered", "video_id", existing.ID, "url", url)
		}
		return existing, nil
	}

	video := &Video{
		ID:         NewID(),
		URL:        url,
		Title:      title,
		Uploader:   uploader,
		FolderName: folderName,
		CreatedAt:  time.Now(),
	}
	if err := s.repo.CreateVideo(ctx, video); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("video registered", "video_id", video.ID, "url", url)
	}
	return video, nil
}

func (s *Service) AttachMedia(ctx context.Context, videoID, videoPath, audioPath string, duration time.Duration) error {
	return s.repo.UpdateVideoMedia(ctx, videoID, videoPath, audioPath, duration)
}

// StoreScenes validates the detected scene list and persists it, replacing
// any scenes from an earlier run of the same video.
func (s *Service) StoreScenes(ctx context.Context, videoID string, scenes []Scene) error {
	for i := range scenes {
		if scenes[i].ID == "" {
			scenes[i].ID = NewID()
		}
		scenes[i].VideoID = videoID
	}
	if err := ValidateScenes(scenes); err != nil {
		return fmt.Errorf("invalid scene list: %w", err)
	}

	if err := s.repo.DeleteScenesByVideo(ctx, videoID); err != nil {
		return err
	}
	if err := s.repo.CreateScenes(ctx, scenes); err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.Info("scenes stored", "video_id", videoID, "count", len(scenes))
	}
	return nil
}

// StoreTranscript persists the winning tier's segments and records which tier
// produced them on the video row.
func (s *Service) StoreTranscript(ctx context.Context, videoID, tier string, segments []TranscriptSegment) error {
	for i := range segments {
		if segments[i].ID == "" {
			segments[i].ID = NewID()
		}
		segments[i].VideoID = videoID
		segments[i].SourceTier = tier
	}

	if err := s.repo.DeleteSegmentsByVideo(ctx, videoID); err != nil {
		return err
	}
	if err := s.repo.CreateSegments(ctx, segments); err != nil {
		return err
	}
	if err := s.repo.UpdateVideoTranscriptTier(ctx, videoID, tier); err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.Info("transcript stored", "video_id", videoID, "tier", tier, "segments", len(segments))
	}
	return nil
}

func (s *Service) SetSceneFrame(ctx context.Context, sceneID, framePath string) error {
	return s.repo.UpdateSceneFrame(ctx, sceneID, framePath)
}

func (s *Service) GetVideo(ctx context.Context, id string) (*Video, error) {
	return s.repo.GetVideo(ctx, id)
}

func (s *Service) GetVideos(ctx context.Context) ([]*Video, error) {
	return s.repo.ListVideos(ctx)
}

func (s *Service) GetScenes(ctx context.Context, videoID string) ([]Scene, error) {
	return s.repo.GetScenesByVideo(ctx, videoID)
}

func (s *Service) GetSegments(ctx context.Context, videoID string) ([]TranscriptSegment, error) {
	return s.repo.GetSegmentsByVideo(ctx, videoID)
}

// SceneText maps each scene index to the concatenated text of every transcript
// segment overlapping it in time. A segment spanning a scene boundary
// contributes to both scenes.
func (s *Service) SceneText(ctx context.Context, videoID string) (map[int]string, error) {
	scenes, err := s.repo.GetScenesByVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}
	segments, err := s.repo.GetSegmentsByVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}

	sort.Slice(segments, func(i, j int) bool { return segments[i].StartMs < segments[j].StartMs })

	text := make(map[int]string, len(scenes))
	for _, scene := range scenes {
		var parts []string
		for _, seg := range segments {
			if seg.StartMs >= scene.EndMs {
				break
			}
			if seg.Overlaps(scene) && strings.TrimSpace(seg.Text) != "" {
				parts = append(parts, strings.TrimSpace(seg.Text))
			}
		}
		text[scene.Index] = strings.Join(parts, " ")
	}
	return text, nil
}

// WriteTranscriptFile renders the full transcript to subtitle.txt in dir with
// a header naming the producing tier, and returns the file path.
func (s *Service) WriteTranscriptFile(ctx context.Context, videoID, dir string) (string, error) {
	video, err := s.repo.GetVideo(ctx, videoID)
	if err != nil {
		return "", err
	}
	if video == nil {
		return "", fmt.Errorf("video %s not found", videoID)
	}
	segments, err := s.repo.GetSegmentsByVideo(ctx, videoID)
	if err != nil {
		return "", err
	}
	if len(segments) == 0 {
		return "", fmt.Errorf("no transcript segments for video %s", videoID)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# transcript source: %s\n\n", video.TranscriptTier)
	for _, seg := range segments {
		start := time.Duration(seg.StartMs) * time.Millisecond
		fmt.Fprintf(&b, "[%s] %s\n", formatClock(start), seg.Text)
	}

	path := filepath.Join(dir, "subtitle.txt")
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return "", err
	}
	return path, nil
}

func formatClock(d time.Duration) string {
	total := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
