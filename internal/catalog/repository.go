package catalog

import (
	"context"
	"database/sql"
	"time"
)

type Repository interface {
	CreateVideo(ctx context.Context, v *Video) error
	GetVideo(ctx context.Context, id string) (*Video, error)
	GetVideoByURL(ctx context.Context, url string) (*Video, error)
	ListVideos(ctx context.Context) ([]*Video, error)
	UpdateVideoMedia(ctx context.Context, id, videoPath, audioPath string, duration time.Duration) error
	UpdateVideoTranscriptTier(ctx context.Context, id, tier string) error
	DeleteVideo(ctx context.Context, id string) error

	CreateScenes(ctx context.Context, scenes []Scene) error
	GetScenesByVideo(ctx context.Context, videoID string) ([]Scene, error)
	UpdateSceneFrame(ctx context.Context, id, framePath string) error
	DeleteScenesByVideo(ctx context.Context, videoID string) error

	CreateSegments(ctx context.Context, segments []TranscriptSegment) error
	GetSegmentsByVideo(ctx context.Context, videoID string) ([]TranscriptSegment, error)
	DeleteSegmentsByVideo(ctx context.Context, videoID string) error

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) CreateVideo(ctx context.Context, v *Video) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO videos (id, url, title, uploader, folder_name, video_path, audio_path, duration_ms, transcript_tier, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, v.ID, v.URL, nullString(v.Title), nullString(v.Uploader), nullString(v.FolderName),
		nullString(v.VideoPath), nullString(v.AudioPath), v.Duration.Milliseconds(),
		nullString(v.TranscriptTier), v.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetVideo(ctx context.Context, id string) (*Video, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, url, title, uploader, folder_name, video_path, audio_path, duration_ms, transcript_tier, created_at
		FROM videos WHERE id = ?
	`, id)
	return r.scanVideo(row)
}

func (r *SQLiteRepository) GetVideoByURL(ctx context.Context, url string) (*Video, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, url, title, uploader, folder_name, video_path, audio_path, duration_ms, transcript_tier, created_at
		FROM videos WHERE url = ? ORDER BY created_at DESC LIMIT 1
	`, url)
	return r.scanVideo(row)
}

func (r *SQLiteRepository) scanVideo(row *sql.Row) (*Video, error) {
	var v Video
	var durationMs int64
	var createdAt string
	var title, uploader, folderName, videoPath, audioPath, tier sql.NullString

	err := row.Scan(&v.ID, &v.URL, &title, &uploader, &folderName, &videoPath, &audioPath, &durationMs, &tier, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	v.Title = title.String
	v.Uploader = uploader.String
	v.FolderName = folderName.String
	v.VideoPath = videoPath.String
	v.AudioPath = audioPath.String
	v.TranscriptTier = tier.String
	v.Duration = time.Duration(durationMs) * time.Millisecond
	v.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &v, nil
}

func (r *SQLiteRepository) ListVideos(ctx context.Context) ([]*Video, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, url, title, uploader, folder_name, video_path, audio_path, duration_ms, transcript_tier, created_at
		FROM videos ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var videos []*Video
	for rows.Next() {
		var v Video
		var durationMs int64
		var createdAt string
		var title, uploader, folderName, videoPath, audioPath, tier sql.NullString

		if err := rows.Scan(&v.ID, &v.URL, &title, &uploader, &folderName, &videoPath, &audioPath, &durationMs, &tier, &createdAt); err != nil {
			return nil, err
		}
		v.Title = title.String
		v.Uploader = uploader.String
		v.FolderName = folderName.String
		v.VideoPath = videoPath.String
		v.AudioPath = audioPath.String
		v.TranscriptTier = tier.String
		v.Duration = time.Duration(durationMs) * time.Millisecond
		v.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		videos = append(videos, &v)
	}
	return videos, rows.Err()
}

func (r *SQLiteRepository) UpdateVideoMedia(ctx context.Context, id, videoPath, audioPath string, duration time.Duration) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE videos SET video_path = ?, audio_path = ?, duration_ms = ? WHERE id = ?
	`, nullString(videoPath), nullString(audioPath), duration.Milliseconds(), id)
	return err
}

func (r *SQLiteRepository) UpdateVideoTranscriptTier(ctx context.Context, id, tier string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE videos SET transcript_tier = ? WHERE id = ?
	`, nullString(tier), id)
	return err
}

func (r *SQLiteRepository) DeleteVideo(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM videos WHERE id = ?`, id)
	return err
}

func (r *SQLiteRepository) CreateScenes(ctx context.Context, scenes []Scene) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, sc := range scenes {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO scenes (id, video_id, scene_index, start_ms, end_ms, frame_path, clip_path)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, sc.ID, sc.VideoID, sc.Index, sc.StartMs, sc.EndMs, nullString(sc.FramePath), nullString(sc.ClipPath)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *SQLiteRepository) GetScenesByVideo(ctx context.Context, videoID string) ([]Scene, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, video_id, scene_index, start_ms, end_ms, frame_path, clip_path
		FROM scenes WHERE video_id = ? ORDER BY scene_index
	`, videoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scenes []Scene
	for rows.Next() {
		var sc Scene
		var framePath, clipPath sql.NullString
		if err := rows.Scan(&sc.ID, &sc.VideoID, &sc.Index, &sc.StartMs, &sc.EndMs, &framePath, &clipPath); err != nil {
			return nil, err
		}
		sc.FramePath = framePath.String
		sc.ClipPath = clipPath.String
		scenes = append(scenes, sc)
	}
	return scenes, rows.Err()
}

func (r *SQLiteRepository) UpdateSceneFrame(ctx context.Context, id, framePath string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE scenes SET frame_path = ? WHERE id = ?
	`, nullString(framePath), id)
	return err
}

func (r *SQLiteRepository) DeleteScenesByVideo(ctx context.Context, videoID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM scenes WHERE video_id = ?`, videoID)
	return err
}

func (r *SQLiteRepository) CreateSegments(ctx context.Context, segments []TranscriptSegment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, seg := range segments {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO transcript_segments (id, video_id, start_ms, end_ms, text, source_tier, confidence)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, seg.ID, seg.VideoID, seg.StartMs, seg.EndMs, seg.Text, seg.SourceTier, nullFloat(seg.Confidence)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *SQLiteRepository) GetSegmentsByVideo(ctx context.Context, videoID string) ([]TranscriptSegment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, video_id, start_ms, end_ms, text, source_tier, confidence
		FROM transcript_segments WHERE video_id = ? ORDER BY start_ms
	`, videoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var segments []TranscriptSegment
	for rows.Next() {
		var seg TranscriptSegment
		var confidence sql.NullFloat64
		if err := rows.Scan(&seg.ID, &seg.VideoID, &seg.StartMs, &seg.EndMs, &seg.Text, &seg.SourceTier, &confidence); err != nil {
			return nil, err
		}
		seg.Confidence = confidence.Float64
		segments = append(segments, seg)
	}
	return segments, rows.Err()
}

func (r *SQLiteRepository) DeleteSegmentsByVideo(ctx context.Context, videoID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM transcript_segments WHERE video_id = ?`, videoID)
	return err
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM config WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullFloat(f float64) any {
	if f == 0 {
		return nil
	}
	return f
}
