// Package scoring computes weighted composite scores for catalogued scenes.
// The engine is a pure function of a score record and a weight table; it keeps
// no state and is safe to invoke concurrently per scene.
package scoring

import (
	"fmt"
	"sort"
)

// Dimension names the five fixed judgment axes. Every score record must carry
// all five before a composite can be computed.
type Dimension string

const (
	DimAesthetic    Dimension = "aesthetic"
	DimCredibility  Dimension = "credibility"
	DimImpact       Dimension = "impact"
	DimMemorability Dimension = "memorability"
	DimFun          Dimension = "fun"
)

// Dimensions lists all required dimensions in canonical order.
var Dimensions = []Dimension{
	DimAesthetic,
	DimCredibility,
	DimImpact,
	DimMemorability,
	DimFun,
}

const (
	MinDimensionValue = 1
	MaxDimensionValue = 10
)

// Category is the coarse editorial role of a scene. It selects which weight
// vector applies when computing the composite.
type Category string

const (
	CategoryHook       Category = "hook"
	CategoryNarrative  Category = "narrative"
	CategoryAesthetic  Category = "aesthetic"
	CategoryCommercial Category = "commercial"

	// CategoryDefault is used for scenes without a declared category and maps
	// to the equal-weight baseline.
	CategoryDefault Category = ""
)

// Record holds the raw per-scene judgment, written exactly once by the
// external judgment source (human or AI) and read-only afterwards.
type Record struct {
	SceneIndex int
	Category   Category
	Values     map[Dimension]int
	Rationale  string
}

// Validate checks that all five dimensions are present with integer values in
// [1,10]. Absence is an error, never a default.
func (r Record) Validate() error {
	for _, dim := range Dimensions {
		v, ok := r.Values[dim]
		if !ok {
			return &NotComputableError{SceneIndex: r.SceneIndex, Dimension: dim, Reason: "missing dimension"}
		}
		if v < MinDimensionValue || v > MaxDimensionValue {
			return &NotComputableError{
				SceneIndex: r.SceneIndex,
				Dimension:  dim,
				Reason:     fmt.Sprintf("value %d out of range [%d,%d]", v, MinDimensionValue, MaxDimensionValue),
			}
		}
	}
	return nil
}

// HasPerfectDimension reports whether any single dimension carries the maximum
// value. The selection classifier promotes such scenes regardless of composite.
func (r Record) HasPerfectDimension() bool {
	for _, dim := range Dimensions {
		if r.Values[dim] == MaxDimensionValue {
			return true
		}
	}
	return false
}

// SortedDimensions returns the record's dimensions in deterministic order,
// useful for reproducible logging of partial records.
func (r Record) SortedDimensions() []Dimension {
	dims := make([]Dimension, 0, len(r.Values))
	for d := range r.Values {
		dims = append(dims, d)
	}
	sort.Slice(dims, func(i, j int) bool { return dims[i] < dims[j] })
	return dims
}

// NotComputableError marks a score record whose composite cannot be derived.
// The scene is excluded from ranking; the run continues.
type NotComputableError struct {
	SceneIndex int
	Dimension  Dimension
	Reason     string
}

func (e *NotComputableError) Error() string {
	return fmt.Sprintf("scene %d: composite not computable: dimension %q: %s", e.SceneIndex, e.Dimension, e.Reason)
}
