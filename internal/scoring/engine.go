package scoring

// Composite computes the weighted composite score for one record under the
// given weight table. It is deterministic and has no side effects; iteration
// order of the weight map does not affect the result beyond floating-point
// rounding, since the sum ranges over the fixed dimension list.
//
// The result lies in [1,10] for any valid record and any weight table whose
// vectors sum to 1.0. An invalid record yields a *NotComputableError.
func Composite(r Record, table WeightTable) (float64, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}

	weights := table.For(r.Category)
	sum := 0.0
	for _, dim := range Dimensions {
		sum += float64(r.Values[dim]) * weights[dim]
	}
	return sum, nil
}
