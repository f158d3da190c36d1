package api

import (
	"time"

	"github.com/clipsift/clipsift/internal/catalog"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type VideoResponse struct {
	ID             string `json:"id"`
	URL            string `json:"url"`
	Title          string `json:"title,omitempty"`
	Uploader       string `json:"uploader,omitempty"`
	FolderName     string `json:"folder_name,omitempty"`
	DurationMs     int64  `json:"duration_ms"`
	TranscriptTier string `json:"transcript_tier,omitempty"`
	CreatedAt      string `json:"created_at"`
}

type VideosResponse struct {
	Videos []VideoResponse `json:"videos"`
}

type SceneResponse struct {
	Index    int    `json:"index"`
	StartMs  int    `json:"start_ms"`
	EndMs    int    `json:"end_ms"`
	HasFrame bool   `json:"has_frame"`
	ClipPath string `json:"clip_path,omitempty"`
}

type ScenesResponse struct {
	VideoID string          `json:"video_id"`
	Scenes  []SceneResponse `json:"scenes"`
}

type SegmentResponse struct {
	StartMs    int     `json:"start_ms"`
	EndMs      int     `json:"end_ms"`
	Text       string  `json:"text"`
	SourceTier string  `json:"source_tier"`
	Confidence float64 `json:"confidence,omitempty"`
}

type TranscriptResponse struct {
	VideoID  string            `json:"video_id"`
	Tier     string            `json:"tier,omitempty"`
	Segments []SegmentResponse `json:"segments"`
}

type RankedSceneResponse struct {
	Rank        int      `json:"rank"`
	SceneNumber int      `json:"scene_number"`
	Composite   *float64 `json:"composite_score,omitempty"`
	Selection   string   `json:"selection,omitempty"`
	Category    string   `json:"category,omitempty"`
	Rationale   string   `json:"rationale,omitempty"`
	ScoreError  string   `json:"score_error,omitempty"`
}

type RankingResponse struct {
	VideoID string                `json:"video_id"`
	Scenes  []RankedSceneResponse `json:"scenes"`
}

func VideoToResponse(v *catalog.Video) VideoResponse {
	return VideoResponse{
		ID:             v.ID,
		URL:            v.URL,
		Title:          v.Title,
		Uploader:       v.Uploader,
		FolderName:     v.FolderName,
		DurationMs:     v.Duration.Milliseconds(),
		TranscriptTier: v.TranscriptTier,
		CreatedAt:      v.CreatedAt.Format(time.RFC3339),
	}
}
