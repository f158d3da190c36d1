// Package catalog owns the per-video scene catalog: the video asset, its
// detected scenes, and the transcript segments associated to them. The catalog
// is the aggregate root for one analysis run; each entity is written by
// exactly one pipeline stage.
package catalog

import (
	"crypto/rand"
	"fmt"
	"time"
)

type Video struct {
	ID             string        `json:"id"`
	URL            string        `json:"url"`
	Title          string        `json:"title,omitempty"`
	Uploader       string        `json:"uploader,omitempty"`
	FolderName     string        `json:"folder_name,omitempty"`
	VideoPath      string        `json:"video_path,omitempty"`
	AudioPath      string        `json:"audio_path,omitempty"`
	Duration       time.Duration `json:"duration_ms"`
	TranscriptTier string        `json:"transcript_tier,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

// Scene is one detected editorial unit. Scenes are ordered by index, must
// satisfy StartMs < EndMs, and never overlap.
type Scene struct {
	ID        string `json:"id"`
	VideoID   string `json:"video_id"`
	Index     int    `json:"index"`
	StartMs   int    `json:"start_ms"`
	EndMs     int    `json:"end_ms"`
	FramePath string `json:"frame_path,omitempty"`
	ClipPath  string `json:"clip_path,omitempty"`
}

// TranscriptSegment is one transcript span with its producing tier. Segments
// associate to scenes by temporal overlap, not containment: a segment may span
// multiple scenes and a scene may contain none.
type TranscriptSegment struct {
	ID         string  `json:"id"`
	VideoID    string  `json:"video_id"`
	StartMs    int     `json:"start_ms"`
	EndMs      int     `json:"end_ms"`
	Text       string  `json:"text"`
	SourceTier string  `json:"source_tier"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Overlaps reports whether the segment temporally overlaps the scene.
func (s TranscriptSegment) Overlaps(scene Scene) bool {
	return s.StartMs < scene.EndMs && s.EndMs > scene.StartMs
}

func NewID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:])
}

// ValidateScenes checks the catalog invariants for a detected scene list:
// positive spans, strictly increasing indexes, and no temporal overlap between
// consecutive scenes (gaps are allowed).
func ValidateScenes(scenes []Scene) error {
	for i, sc := range scenes {
		if sc.StartMs >= sc.EndMs {
			return fmt.Errorf("scene %d: start %dms not before end %dms", sc.Index, sc.StartMs, sc.EndMs)
		}
		if i > 0 {
			prev := scenes[i-1]
			if sc.Index <= prev.Index {
				return fmt.Errorf("scene %d: index not increasing after scene %d", sc.Index, prev.Index)
			}
			if sc.StartMs < prev.EndMs {
				return fmt.Errorf("scene %d: overlaps scene %d", sc.Index, prev.Index)
			}
		}
	}
	return nil
}
