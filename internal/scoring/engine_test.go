package scoring

import (
	"errors"
	"math"
	"testing"
)

func validRecord(cat Category, values map[Dimension]int) Record {
	return Record{SceneIndex: 1, Category: cat, Values: values}
}

func TestComposite_DefaultWeights(t *testing.T) {
	record := validRecord(CategoryDefault, map[Dimension]int{
		DimAesthetic: 6, DimCredibility: 6, DimImpact: 6, DimMemorability: 6, DimFun: 6,
	})

	got, err := Composite(record, DefaultWeightTable())
	if err != nil {
		t.Fatalf("Composite() error = %v", err)
	}
	if math.Abs(got-6.0) > 1e-9 {
		t.Errorf("Composite() = %v, want 6.0", got)
	}
}

func TestComposite_HookCategory(t *testing.T) {
	// impact 0.4, memorability 0.3, fun 0.2, aesthetic 0.1
	record := validRecord(CategoryHook, map[Dimension]int{
		DimAesthetic: 9, DimCredibility: 8, DimImpact: 9, DimMemorability: 10, DimFun: 8,
	})

	got, err := Composite(record, DefaultWeightTable())
	if err != nil {
		t.Fatalf("Composite() error = %v", err)
	}
	want := 9*0.4 + 10*0.3 + 8*0.2 + 9*0.1
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Composite() = %v, want %v", got, want)
	}
}

func TestComposite_ResultInRange(t *testing.T) {
	table := DefaultWeightTable()
	for _, cat := range []Category{CategoryDefault, CategoryHook, CategoryNarrative, CategoryAesthetic, CategoryCommercial} {
		for v := MinDimensionValue; v <= MaxDimensionValue; v++ {
			record := validRecord(cat, map[Dimension]int{
				DimAesthetic: v, DimCredibility: v, DimImpact: v, DimMemorability: v, DimFun: v,
			})
			got, err := Composite(record, table)
			if err != nil {
				t.Fatalf("Composite(%s, all %d) error = %v", cat, v, err)
			}
			if got < float64(MinDimensionValue) || got > float64(MaxDimensionValue) {
				t.Errorf("Composite(%s, all %d) = %v, out of [1,10]", cat, v, got)
			}
		}
	}
}

func TestComposite_MissingDimension(t *testing.T) {
	record := validRecord(CategoryHook, map[Dimension]int{
		DimAesthetic: 9, DimCredibility: 8, DimImpact: 9, DimMemorability: 10,
	})

	_, err := Composite(record, DefaultWeightTable())
	if err == nil {
		t.Fatal("Composite() should fail when a dimension is missing")
	}

	var nce *NotComputableError
	if !errors.As(err, &nce) {
		t.Fatalf("Composite() error = %T, want *NotComputableError", err)
	}
	if nce.Dimension != DimFun {
		t.Errorf("NotComputableError.Dimension = %q, want %q", nce.Dimension, DimFun)
	}
}

func TestComposite_ValueOutOfRange(t *testing.T) {
	for _, v := range []int{0, 11, -3} {
		record := validRecord(CategoryDefault, map[Dimension]int{
			DimAesthetic: v, DimCredibility: 5, DimImpact: 5, DimMemorability: 5, DimFun: 5,
		})
		if _, err := Composite(record, DefaultWeightTable()); err == nil {
			t.Errorf("Composite() with aesthetic=%d should fail", v)
		}
	}
}

func TestComposite_UnknownCategoryFallsBackToDefault(t *testing.T) {
	values := map[Dimension]int{
		DimAesthetic: 2, DimCredibility: 4, DimImpact: 6, DimMemorability: 8, DimFun: 10,
	}

	got, err := Composite(validRecord(Category("unheard-of"), values), DefaultWeightTable())
	if err != nil {
		t.Fatalf("Composite() error = %v", err)
	}
	want, err := Composite(validRecord(CategoryDefault, values), DefaultWeightTable())
	if err != nil {
		t.Fatalf("Composite() error = %v", err)
	}
	if got != want {
		t.Errorf("unknown category composite = %v, default composite = %v, want equal", got, want)
	}
}

func TestRecord_HasPerfectDimension(t *testing.T) {
	with := validRecord(CategoryDefault, map[Dimension]int{
		DimAesthetic: 1, DimCredibility: 1, DimImpact: 1, DimMemorability: 10, DimFun: 1,
	})
	if !with.HasPerfectDimension() {
		t.Error("HasPerfectDimension() = false, want true")
	}

	without := validRecord(CategoryDefault, map[Dimension]int{
		DimAesthetic: 9, DimCredibility: 9, DimImpact: 9, DimMemorability: 9, DimFun: 9,
	})
	if without.HasPerfectDimension() {
		t.Error("HasPerfectDimension() = true, want false")
	}
}
