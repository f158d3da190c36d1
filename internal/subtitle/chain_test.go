package subtitle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeTier struct {
	name     string
	segments []Segment
	err      error
	calls    int
}

func (t *fakeTier) Name() string { return t.name }

func (t *fakeTier) Attempt(ctx context.Context, asset Asset) ([]Segment, error) {
	t.calls++
	return t.segments, t.err
}

func someSegments(text string) []Segment {
	return []Segment{{Text: text, StartMs: 0, EndMs: 1000}}
}

func TestChain_FirstTierWins(t *testing.T) {
	first := &fakeTier{name: "first", segments: someSegments("from first")}
	second := &fakeTier{name: "second", segments: someSegments("from second")}

	chain := NewChain([]Tier{first, second}, nil, testLogger())
	transcript, err := chain.Run(context.Background(), Asset{VideoID: "v1"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if transcript.SourceTier != "first" {
		t.Errorf("SourceTier = %q, want %q", transcript.SourceTier, "first")
	}
	if transcript.Segments[0].Text != "from first" {
		t.Errorf("wrong segments selected: %+v", transcript.Segments)
	}
	if second.calls != 0 {
		t.Errorf("second tier was attempted despite first tier success")
	}
}

func TestChain_AdvancesPastFailures(t *testing.T) {
	tiers := []Tier{
		&fakeTier{name: "captions", err: ErrUnavailable},
		&fakeTier{name: "embedded", err: fmt.Errorf("no subtitle stream")},
		&fakeTier{name: "ocr", segments: nil}, // empty result is a failure too
		&fakeTier{name: "speech", segments: someSegments("spoken words")},
	}

	chain := NewChain(tiers, nil, testLogger())
	transcript, err := chain.Run(context.Background(), Asset{VideoID: "v1"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if transcript.SourceTier != "speech" {
		t.Errorf("SourceTier = %q, want %q", transcript.SourceTier, "speech")
	}
	for _, tier := range tiers {
		if tier.(*fakeTier).calls != 1 {
			t.Errorf("tier %s attempted %d times, want 1", tier.Name(), tier.(*fakeTier).calls)
		}
	}
}

func TestChain_TotalFailure(t *testing.T) {
	tiers := []Tier{
		&fakeTier{name: "captions", err: ErrUnavailable},
		&fakeTier{name: "embedded", err: errors.New("boom")},
		&fakeTier{name: "ocr", err: errors.New("coverage too low")},
		&fakeTier{name: "speech", err: errors.New("model missing")},
	}

	chain := NewChain(tiers, nil, testLogger())
	transcript, err := chain.Run(context.Background(), Asset{VideoID: "v1"})
	if transcript != nil {
		t.Errorf("Run() transcript = %+v, want nil", transcript)
	}
	if !errors.Is(err, ErrNoTranscript) {
		t.Errorf("Run() error = %v, want ErrNoTranscript", err)
	}
}

type slowTier struct {
	name string
}

func (t *slowTier) Name() string { return t.name }

func (t *slowTier) Attempt(ctx context.Context, asset Asset) ([]Segment, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(5 * time.Second):
		return someSegments("too late"), nil
	}
}

func TestChain_TierBudgetExpiryAdvances(t *testing.T) {
	slow := &slowTier{name: "slow"}
	fallback := &fakeTier{name: "fallback", segments: someSegments("fallback text")}

	budgets := map[string]time.Duration{"slow": 10 * time.Millisecond}
	chain := NewChain([]Tier{slow, fallback}, budgets, testLogger())

	transcript, err := chain.Run(context.Background(), Asset{VideoID: "v1"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if transcript.SourceTier != "fallback" {
		t.Errorf("SourceTier = %q, want fallback after budget expiry", transcript.SourceTier)
	}
}

func TestChain_OuterCancellationStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tier := &fakeTier{name: "first", segments: someSegments("x")}
	chain := NewChain([]Tier{tier}, nil, testLogger())

	if _, err := chain.Run(ctx, Asset{VideoID: "v1"}); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if tier.calls != 0 {
		t.Errorf("tier attempted after cancellation")
	}
}
