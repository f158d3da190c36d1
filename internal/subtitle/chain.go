// Package subtitle implements the tiered transcript acquisition chain. Four
// strategies are tried strictly in order of increasing cost; the first
// non-empty result wins and becomes the transcript, with its tier recorded
// for observability. Tiers never run in parallel: each tier's cost-avoidance
// rationale depends on the cheaper tiers having already failed.
package subtitle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Segment is one transcript span. Confidence is zero when the producing tier
// does not report one.
type Segment struct {
	Text       string  `json:"text"`
	StartMs    int     `json:"start_ms"`
	EndMs      int     `json:"end_ms"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Asset identifies the video a chain run works on.
type Asset struct {
	VideoID   string
	URL       string
	VideoPath string
}

// Tier is one acquisition strategy. Attempt returns the tier's segments or an
// error; an empty result is treated as failure by the chain. Errors advance
// the chain and are never fatal on their own.
type Tier interface {
	Name() string
	Attempt(ctx context.Context, asset Asset) ([]Segment, error)
}

// ErrUnavailable marks a tier that cannot apply to this asset at all (for
// example, no caption API configured). It is an ordinary tier failure.
var ErrUnavailable = errors.New("tier unavailable")

// ErrNoTranscript is returned when every tier, including the last-resort
// speech tier, failed. Callers must treat this as "no transcript available",
// not as a pipeline abort.
var ErrNoTranscript = errors.New("no transcript available from any tier")

// Transcript is the chain's output: exactly one tier's segments, annotated
// with the producing tier. Tiers are never merged.
type Transcript struct {
	SourceTier string
	Segments   []Segment
}

// Chain tries tiers in fixed priority order. Adding or reordering tiers is a
// data change on the tier slice, not a control-flow change.
type Chain struct {
	tiers   []Tier
	budgets map[string]time.Duration
	logger  *slog.Logger
}

// NewChain builds a chain over the given tiers. budgets maps tier name to its
// time budget; a missing or zero entry means unbounded. Exceeding a budget is
// that tier's failure, nothing more.
func NewChain(tiers []Tier, budgets map[string]time.Duration, logger *slog.Logger) *Chain {
	return &Chain{tiers: tiers, budgets: budgets, logger: logger}
}

// Run executes the chain. The first tier returning a non-empty segment list
// terminates the chain; its output becomes the transcript. Only total failure
// of every tier yields ErrNoTranscript.
func (c *Chain) Run(ctx context.Context, asset Asset) (*Transcript, error) {
	for _, tier := range c.tiers {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		segments, err := c.attemptTier(ctx, tier, asset)
		if err != nil {
			c.logger.Info("subtitle tier failed, advancing",
				"tier", tier.Name(),
				"video_id", asset.VideoID,
				"error", err,
			)
			continue
		}
		if len(segments) == 0 {
			c.logger.Info("subtitle tier returned no segments, advancing",
				"tier", tier.Name(),
				"video_id", asset.VideoID,
			)
			continue
		}

		c.logger.Info("transcript acquired",
			"tier", tier.Name(),
			"video_id", asset.VideoID,
			"segments", len(segments),
		)
		return &Transcript{SourceTier: tier.Name(), Segments: segments}, nil
	}

	return nil, fmt.Errorf("%w: tried %d tiers", ErrNoTranscript, len(c.tiers))
}

func (c *Chain) attemptTier(ctx context.Context, tier Tier, asset Asset) ([]Segment, error) {
	if budget, ok := c.budgets[tier.Name()]; ok && budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}
	return tier.Attempt(ctx, asset)
}
