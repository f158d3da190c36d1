package scoring

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

const weightSumTolerance = 1e-9

// Weights is a weight vector over the five dimensions. Weights for a category
// must sum to 1.0; dimensions absent from the vector carry weight zero.
type Weights map[Dimension]float64

// WeightTable maps a scene category to its weight vector. The table is
// configuration, not engine logic: it can be replaced from a YAML file without
// a code change.
type WeightTable map[Category]Weights

// dimensionAliases maps alternative spellings accepted in weight files to
// canonical dimensions. "sync" is the historical name for the fun weight in
// hook-type scenes.
var dimensionAliases = map[string]Dimension{
	"sync":         DimFun,
	"fun_interest": DimFun,
	"aesthetics":   DimAesthetic,
	"beauty":       DimAesthetic,
	"aesthetic":    DimAesthetic,
	"credibility":  DimCredibility,
	"impact":       DimImpact,
	"memorability": DimMemorability,
	"fun":          DimFun,
}

// DefaultWeightTable returns the built-in category weights. The baseline is an
// equal 20% per dimension; category overrides emphasise the dimensions most
// diagnostic for that editorial role.
func DefaultWeightTable() WeightTable {
	return WeightTable{
		CategoryDefault: {
			DimAesthetic: 0.2, DimCredibility: 0.2, DimImpact: 0.2, DimMemorability: 0.2, DimFun: 0.2,
		},
		CategoryHook: {
			DimImpact: 0.4, DimMemorability: 0.3, DimFun: 0.2, DimAesthetic: 0.1,
		},
		CategoryNarrative: {
			DimCredibility: 0.4, DimMemorability: 0.3, DimAesthetic: 0.2, DimImpact: 0.1,
		},
		CategoryAesthetic: {
			DimAesthetic: 0.5, DimFun: 0.3, DimImpact: 0.2,
		},
		CategoryCommercial: {
			DimCredibility: 0.4, DimMemorability: 0.4, DimAesthetic: 0.2,
		},
	}
}

// Validate checks that every category's weights sum to 1.0 and that no weight
// is negative. A malformed table is a configuration error and must never be
// partially applied.
func (t WeightTable) Validate() error {
	if _, ok := t[CategoryDefault]; !ok {
		return fmt.Errorf("weight table missing default category")
	}
	for cat, weights := range t {
		sum := 0.0
		for dim, w := range weights {
			if w < 0 {
				return fmt.Errorf("weight table category %q: dimension %q has negative weight %v", cat, dim, w)
			}
			sum += w
		}
		if math.Abs(sum-1.0) > weightSumTolerance {
			return fmt.Errorf("weight table category %q: weights sum to %v, want 1.0", cat, sum)
		}
	}
	return nil
}

// For returns the weight vector for a category, falling back to the default
// vector for unknown or empty categories.
func (t WeightTable) For(cat Category) Weights {
	if w, ok := t[cat]; ok {
		return w
	}
	return t[CategoryDefault]
}

// weightFile is the YAML shape of an external weight table override.
type weightFile struct {
	Categories map[string]map[string]float64 `yaml:"categories"`
}

// LoadWeightTable reads a weight table override from a YAML file, resolves
// dimension aliases, merges over the defaults, and validates the result.
func LoadWeightTable(path string) (WeightTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read weight table: %w", err)
	}

	var wf weightFile
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("parse weight table: %w", err)
	}

	table := DefaultWeightTable()
	for catName, rawWeights := range wf.Categories {
		cat, err := parseCategory(catName)
		if err != nil {
			return nil, err
		}
		weights := Weights{}
		for dimName, w := range rawWeights {
			dim, ok := dimensionAliases[dimName]
			if !ok {
				return nil, fmt.Errorf("weight table category %q: unknown dimension %q", catName, dimName)
			}
			weights[dim] += w
		}
		table[cat] = weights
	}

	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}

// ParseCategory resolves a category name as written in scoring files. Legacy
// TYPE-A..TYPE-D labels from older scoring templates are accepted.
func ParseCategory(name string) (Category, error) {
	return parseCategory(name)
}

func parseCategory(name string) (Category, error) {
	switch name {
	case "hook", "TYPE-A":
		return CategoryHook, nil
	case "narrative", "TYPE-B":
		return CategoryNarrative, nil
	case "aesthetic", "TYPE-C":
		return CategoryAesthetic, nil
	case "commercial", "TYPE-D":
		return CategoryCommercial, nil
	case "", "default", "balanced":
		return CategoryDefault, nil
	}
	return CategoryDefault, fmt.Errorf("unknown scene category %q", name)
}
