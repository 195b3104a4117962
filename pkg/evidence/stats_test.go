package evidence

import "testing"

func TestMedian(t *testing.T) {
	if got := Median(nil); got != 0 {
		t.Fatalf("expected 0 for empty, got %f", got)
	}
	if got := Median([]float64{7.2}); got != 7.2 {
		t.Fatalf("expected 7.2, got %f", got)
	}
	if got := Median([]float64{9, 5, 7}); got != 7 {
		t.Fatalf("expected 7, got %f", got)
	}
	if got := Median([]float64{8, 4, 6, 10}); got != 7 {
		t.Fatalf("expected 7, got %f", got)
	}
}

func TestMedian_DoesNotMutateInput(t *testing.T) {
	values := []float64{9, 5, 7}
	_ = Median(values)
	if values[0] != 9 || values[1] != 5 || values[2] != 7 {
		t.Fatalf("input mutated: %v", values)
	}
}

func TestPercentile(t *testing.T) {
	values := []float64{1, 2, 3, 4}
	if got := Percentile(values, 0.25); got != 1.75 {
		t.Fatalf("expected 1.75, got %f", got)
	}
	if got := Percentile(values, 0.75); got != 3.25 {
		t.Fatalf("expected 3.25, got %f", got)
	}
	if got := Percentile(values, 0); got != 1 {
		t.Fatalf("expected 1, got %f", got)
	}
	if got := Percentile(values, 1); got != 4 {
		t.Fatalf("expected 4, got %f", got)
	}
	if got := Percentile([]float64{5}, 0.75); got != 5 {
		t.Fatalf("expected 5 for single value, got %f", got)
	}
}

func TestAssaySpread(t *testing.T) {
	spread := AssaySpread([]float64{4, 8, 6, 10})
	if spread.Min != 4 || spread.Max != 10 {
		t.Fatalf("unexpected min/max: %+v", spread)
	}
	if spread.Median != 7 {
		t.Fatalf("expected median 7, got %f", spread.Median)
	}
	if spread.IQR != 3 {
		t.Fatalf("expected iqr 3, got %f", spread.IQR)
	}

	empty := AssaySpread(nil)
	if empty != (Spread{}) {
		t.Fatalf("expected zero spread, got %+v", empty)
	}
}
