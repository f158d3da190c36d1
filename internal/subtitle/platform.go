package subtitle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const TierPlatformCaptions = "platform_captions"

// CaptionClient fetches platform-native caption tracks over HTTP. It is the
// fastest and most trusted tier: any non-empty track is accepted without a
// quality check.
type CaptionClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewCaptionClient creates the platform caption tier. An empty baseURL makes
// the tier permanently unavailable, which the chain treats as an ordinary
// failure.
func NewCaptionClient(baseURL string, logger *slog.Logger) *CaptionClient {
	return &CaptionClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

func (c *CaptionClient) Name() string { return TierPlatformCaptions }

// captionTrack is the caption API response shape: a list of cues with
// fractional-second timestamps.
type captionTrack struct {
	Body []struct {
		From    float64 `json:"from"`
		To      float64 `json:"to"`
		Content string  `json:"content"`
	} `json:"body"`
}

// Attempt fetches the caption track for the asset. Missing tracks, transport
// errors, and non-200 responses all fail the tier.
func (c *CaptionClient) Attempt(ctx context.Context, asset Asset) ([]Segment, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("%w: no caption API configured", ErrUnavailable)
	}

	reqURL := fmt.Sprintf("%s?video_id=%s", c.baseURL, url.QueryEscape(asset.VideoID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create caption request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("caption fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("no caption track for %s", asset.VideoID)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("caption fetch: HTTP %d: %s", resp.StatusCode, body)
	}

	var track captionTrack
	if err := json.NewDecoder(resp.Body).Decode(&track); err != nil {
		return nil, fmt.Errorf("parse caption track: %w", err)
	}

	var segments []Segment
	for _, cue := range track.Body {
		if cue.Content == "" {
			continue
		}
		segments = append(segments, Segment{
			Text:    cue.Content,
			StartMs: int(cue.From * 1000),
			EndMs:   int(cue.To * 1000),
		})
	}
	return segments, nil
}
