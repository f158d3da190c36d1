// Package selection maps composite scores to discrete selection levels and
// produces the deterministic ranking used to curate best footage.
package selection

import (
	"fmt"
	"sort"

	"github.com/clipsift/clipsift/internal/scoring"
)

// Level is the three-way editorial verdict for a scene.
type Level string

const (
	LevelMustKeep Level = "MUST_KEEP"
	LevelUsable   Level = "USABLE"
	LevelDiscard  Level = "DISCARD"
)

// Thresholds are the caller-supplied classification cut-offs.
type Thresholds struct {
	MustKeep float64
	Usable   float64
}

// Validate rejects inconsistent thresholds. This is a configuration error and
// must be surfaced before any scene is processed.
func (t Thresholds) Validate() error {
	if t.Usable > t.MustKeep {
		return fmt.Errorf("invalid thresholds: usable %.2f exceeds must-keep %.2f", t.Usable, t.MustKeep)
	}
	return nil
}

// Classify maps one composite score to a level. A single perfect dimension
// promotes the scene to MUST_KEEP regardless of composite; the rule is kept
// deliberately, it rewards scenes with one extreme strength.
func Classify(composite float64, record scoring.Record, t Thresholds) Level {
	if composite >= t.MustKeep || record.HasPerfectDimension() {
		return LevelMustKeep
	}
	if composite >= t.Usable {
		return LevelUsable
	}
	return LevelDiscard
}

// Result is the derived outcome for one scene. It is recomputed from the raw
// record whenever the record changes and is never a source of truth on its own.
type Result struct {
	SceneIndex int
	Composite  float64
	Level      Level
	Rank       int
}

// Input pairs a scene's record with its precomputed composite.
type Input struct {
	SceneIndex int
	Record     scoring.Record
	Composite  float64
}

// Rank classifies every input and orders the results descending by composite,
// breaking ties by ascending scene index so repeated runs over identical input
// produce identical rankings. Rank positions start at 1.
func Rank(inputs []Input, t Thresholds) []Result {
	results := make([]Result, 0, len(inputs))
	for _, in := range inputs {
		results = append(results, Result{
			SceneIndex: in.SceneIndex,
			Composite:  in.Composite,
			Level:      Classify(in.Composite, in.Record, t),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Composite != results[j].Composite {
			return results[i].Composite > results[j].Composite
		}
		return results[i].SceneIndex < results[j].SceneIndex
	})

	for i := range results {
		results[i].Rank = i + 1
	}
	return results
}

// Selected returns the ranked subset worth keeping (MUST_KEEP and USABLE),
// preserving rank order, for the artifact-copy step.
func Selected(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if r.Level == LevelMustKeep || r.Level == LevelUsable {
			out = append(out, r)
		}
	}
	return out
}
