package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/clipsift/clipsift/internal/db"
)

func setupTestDB(t *testing.T) (*db.DB, Repository) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	database, err := db.New(dbPath, nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	repo := NewRepository(database.Conn())
	return database, repo
}

func TestService_RegisterVideo(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, nil)

	video, err := svc.RegisterVideo(context.Background(), "https://www.bilibili.com/video/BV1abc", "某个视频", "up主", "[up主] 某个视频")
	if err != nil {
		t.Fatalf("RegisterVideo() error = %v", err)
	}
	if video.ID == "" {
		t.Error("video.ID is empty")
	}
	if video.Title != "某个视频" {
		t.Errorf("video.Title = %q", video.Title)
	}

	loaded, err := svc.GetVideo(context.Background(), video.ID)
	if err != nil {
		t.Fatalf("GetVideo() error = %v", err)
	}
	if loaded == nil || loaded.URL != video.URL {
		t.Errorf("GetVideo() = %+v", loaded)
	}
}

func TestService_RegisterVideo_EmptyURL(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, nil)
	if _, err := svc.RegisterVideo(context.Background(), "  ", "", "", ""); err == nil {
		t.Error("RegisterVideo() should reject an empty URL")
	}
}

func TestService_RegisterVideo_RerunResetsRun(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, nil)
	ctx := context.Background()

	first, err := svc.RegisterVideo(ctx, "https://youtu.be/abc", "t", "u", "f")
	if err != nil {
		t.Fatalf("RegisterVideo() error = %v", err)
	}
	if err := svc.StoreScenes(ctx, first.ID, []Scene{{Index: 1, StartMs: 0, EndMs: 1000}}); err != nil {
		t.Fatalf("StoreScenes() error = %v", err)
	}
	if err := svc.StoreTranscript(ctx, first.ID, "embedded", []TranscriptSegment{{StartMs: 0, EndMs: 500, Text: "hi"}}); err != nil {
		t.Fatalf("StoreTranscript() error = %v", err)
	}

	second, err := svc.RegisterVideo(ctx, "https://youtu.be/abc", "t", "u", "f")
	if err != nil {
		t.Fatalf("re-RegisterVideo() error = %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("re-registering created a new video: %s vs %s", second.ID, first.ID)
	}

	scenes, _ := svc.GetScenes(ctx, first.ID)
	if len(scenes) != 0 {
		t.Errorf("scenes survived re-registration: %d", len(scenes))
	}
	segments, _ := svc.GetSegments(ctx, first.ID)
	if len(segments) != 0 {
		t.Errorf("segments survived re-registration: %d", len(segments))
	}
}

func TestService_StoreScenes_RejectsInvalid(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, nil)
	ctx := context.Background()

	video, err := svc.RegisterVideo(ctx, "https://youtu.be/def", "", "", "")
	if err != nil {
		t.Fatalf("RegisterVideo() error = %v", err)
	}

	tests := []struct {
		name   string
		scenes []Scene
	}{
		{"zero-length span", []Scene{{Index: 1, StartMs: 500, EndMs: 500}}},
		{"overlapping scenes", []Scene{
			{Index: 1, StartMs: 0, EndMs: 2000},
			{Index: 2, StartMs: 1500, EndMs: 3000},
		}},
		{"non-increasing index", []Scene{
			{Index: 2, StartMs: 0, EndMs: 1000},
			{Index: 1, StartMs: 1000, EndMs: 2000},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := svc.StoreScenes(ctx, video.ID, tt.scenes); err == nil {
				t.Error("StoreScenes() should reject invalid scene list")
			}
		})
	}
}

func TestService_SceneText_TemporalOverlap(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, nil)
	ctx := context.Background()

	video, err := svc.RegisterVideo(ctx, "https://youtu.be/ghi", "", "", "")
	if err != nil {
		t.Fatalf("RegisterVideo() error = %v", err)
	}

	scenes := []Scene{
		{Index: 1, StartMs: 0, EndMs: 4000},
		{Index: 2, StartMs: 4000, EndMs: 8000},
		{Index: 3, StartMs: 8000, EndMs: 12000},
	}
	if err := svc.StoreScenes(ctx, video.ID, scenes); err != nil {
		t.Fatalf("StoreScenes() error = %v", err)
	}

	segments := []TranscriptSegment{
		{StartMs: 0, EndMs: 2000, Text: "inside scene one"},
		{StartMs: 3500, EndMs: 4500, Text: "spans the boundary"},
		{StartMs: 9000, EndMs: 9500, Text: "scene three only"},
	}
	if err := svc.StoreTranscript(ctx, video.ID, "speech", segments); err != nil {
		t.Fatalf("StoreTranscript() error = %v", err)
	}

	text, err := svc.SceneText(ctx, video.ID)
	if err != nil {
		t.Fatalf("SceneText() error = %v", err)
	}

	if text[1] != "inside scene one spans the boundary" {
		t.Errorf("scene 1 text = %q", text[1])
	}
	// The boundary-spanning segment belongs to both adjacent scenes.
	if text[2] != "spans the boundary" {
		t.Errorf("scene 2 text = %q", text[2])
	}
	if text[3] != "scene three only" {
		t.Errorf("scene 3 text = %q", text[3])
	}
}

func TestService_StoreTranscript_RecordsTier(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, nil)
	ctx := context.Background()

	video, err := svc.RegisterVideo(ctx, "https://youtu.be/jkl", "", "", "")
	if err != nil {
		t.Fatalf("RegisterVideo() error = %v", err)
	}

	if err := svc.StoreTranscript(ctx, video.ID, "burned_in_ocr", []TranscriptSegment{
		{StartMs: 0, EndMs: 2000, Text: "识别文字", Confidence: 0.91},
	}); err != nil {
		t.Fatalf("StoreTranscript() error = %v", err)
	}

	loaded, err := svc.GetVideo(ctx, video.ID)
	if err != nil {
		t.Fatalf("GetVideo() error = %v", err)
	}
	if loaded.TranscriptTier != "burned_in_ocr" {
		t.Errorf("TranscriptTier = %q, want burned_in_ocr", loaded.TranscriptTier)
	}

	segments, err := svc.GetSegments(ctx, video.ID)
	if err != nil {
		t.Fatalf("GetSegments() error = %v", err)
	}
	if len(segments) != 1 || segments[0].SourceTier != "burned_in_ocr" {
		t.Errorf("segments = %+v", segments)
	}
	if segments[0].Confidence != 0.91 {
		t.Errorf("Confidence = %v, want 0.91", segments[0].Confidence)
	}
}

func TestService_WriteTranscriptFile(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, nil)
	ctx := context.Background()

	video, err := svc.RegisterVideo(ctx, "https://youtu.be/mno", "", "", "")
	if err != nil {
		t.Fatalf("RegisterVideo() error = %v", err)
	}
	if err := svc.StoreTranscript(ctx, video.ID, "platform_captions", []TranscriptSegment{
		{StartMs: 0, EndMs: 1000, Text: "first"},
		{StartMs: 61000, EndMs: 62000, Text: "second"},
	}); err != nil {
		t.Fatalf("StoreTranscript() error = %v", err)
	}

	dir := t.TempDir()
	path, err := svc.WriteTranscriptFile(ctx, video.ID, dir)
	if err != nil {
		t.Fatalf("WriteTranscriptFile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read transcript file: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "platform_captions") {
		t.Error("transcript file missing tier annotation")
	}
	if !strings.Contains(content, "[00:01:01] second") {
		t.Errorf("transcript file missing timestamped line:\n%s", content)
	}
}

func TestValidateScenes_Gaps(t *testing.T) {
	// Gaps between scenes are fine; only overlap is rejected.
	scenes := []Scene{
		{Index: 1, StartMs: 0, EndMs: 1000},
		{Index: 2, StartMs: 5000, EndMs: 6000},
	}
	if err := ValidateScenes(scenes); err != nil {
		t.Errorf("ValidateScenes() error = %v", err)
	}
}

func TestSegmentOverlaps(t *testing.T) {
	scene := Scene{StartMs: 1000, EndMs: 2000}
	tests := []struct {
		seg  TranscriptSegment
		want bool
	}{
		{TranscriptSegment{StartMs: 0, EndMs: 999}, false},
		{TranscriptSegment{StartMs: 0, EndMs: 1000}, false}, // touching is not overlap
		{TranscriptSegment{StartMs: 500, EndMs: 1500}, true},
		{TranscriptSegment{StartMs: 1999, EndMs: 3000}, true},
		{TranscriptSegment{StartMs: 2000, EndMs: 3000}, false},
	}
	for _, tt := range tests {
		if got := tt.seg.Overlaps(scene); got != tt.want {
			t.Errorf("Overlaps([%d,%d]) = %v, want %v", tt.seg.StartMs, tt.seg.EndMs, got, tt.want)
		}
	}
}

func TestRepository_VideoRoundTrip(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	ctx := context.Background()
	video := &Video{
		ID:        NewID(),
		URL:       "https://www.bilibili.com/video/BV1xyz",
		Title:     "标题",
		Uploader:  "作者",
		Duration:  95 * time.Second,
		CreatedAt: time.Now().Truncate(time.Second),
	}
	if err := repo.CreateVideo(ctx, video); err != nil {
		t.Fatalf("CreateVideo() error = %v", err)
	}

	loaded, err := repo.GetVideoByURL(ctx, video.URL)
	if err != nil {
		t.Fatalf("GetVideoByURL() error = %v", err)
	}
	if loaded == nil {
		t.Fatal("GetVideoByURL() = nil")
	}
	if loaded.Duration != video.Duration {
		t.Errorf("Duration = %v, want %v", loaded.Duration, video.Duration)
	}
	if loaded.Title != video.Title || loaded.Uploader != video.Uploader {
		t.Errorf("loaded = %+v", loaded)
	}

	missing, err := repo.GetVideo(ctx, "nope")
	if err != nil {
		t.Fatalf("GetVideo(missing) error = %v", err)
	}
	if missing != nil {
		t.Errorf("GetVideo(missing) = %+v, want nil", missing)
	}
}

func TestRepository_Config(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	ctx := context.Background()

	val, err := repo.GetConfig(ctx, "output_dir")
	if err != nil {
		t.Fatalf("GetConfig() error = %v", err)
	}
	if val != "" {
		t.Errorf("GetConfig(unset) = %q, want empty", val)
	}

	if err := repo.SetConfig(ctx, "output_dir", "/tmp/out"); err != nil {
		t.Fatalf("SetConfig() error = %v", err)
	}
	if err := repo.SetConfig(ctx, "output_dir", "/tmp/out2"); err != nil {
		t.Fatalf("SetConfig() upsert error = %v", err)
	}

	val, err = repo.GetConfig(ctx, "output_dir")
	if err != nil {
		t.Fatalf("GetConfig() error = %v", err)
	}
	if val != "/tmp/out2" {
		t.Errorf("GetConfig() = %q, want /tmp/out2", val)
	}
}
