package transform

import (
	"math"
	"testing"

	"hermes/internal/domain/indicator"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestDispatchCoversAllTransforms(t *testing.T) {
	all := []indicator.Transform{
		indicator.TransformNone,
		indicator.TransformYoY,
		indicator.TransformQoQ,
		indicator.TransformMoM,
		indicator.TransformDelta,
		indicator.TransformSMA4,
	}

	for _, tr := range all {
		if _, ok := dispatch[tr]; !ok {
			t.Errorf("transform %s has no dispatch entry", tr)
		}
	}
	if len(dispatch) != len(all) {
		t.Errorf("dispatch has %d entries, want %d", len(dispatch), len(all))
	}
}

func TestApply_UnknownTransform(t *testing.T) {
	_, ok := Apply(indicator.Transform("bogus"), []float64{1, 2}, indicator.FreqMonthly, 1)
	if ok {
		t.Error("unknown transform should not compute")
	}
}

func TestApply_IndexOutOfRange(t *testing.T) {
	values := []float64{1, 2, 3}
	if _, ok := Apply(indicator.TransformNone, values, indicator.FreqMonthly, 3); ok {
		t.Error("index past end should not compute")
	}
	if _, ok := Apply(indicator.TransformNone, values, indicator.FreqMonthly, -1); ok {
		t.Error("negative index should not compute")
	}
}

func TestYearOverYear(t *testing.T) {
	t.Run("monthly series", func(t *testing.T) {
		// 13 monthly values, last is 10% above the value 12 periods back
		values := make([]float64, 13)
		for i := range values {
			values[i] = 100
		}
		values[12] = 110

		got, ok := Apply(indicator.TransformYoY, values, indicator.FreqMonthly, 12)
		if !ok {
			t.Fatal("expected computable")
		}
		if !almostEqual(got, 10) {
			t.Errorf("got %v, want 10", got)
		}
	})

	t.Run("insufficient history", func(t *testing.T) {
		values := []float64{100, 101, 102}
		if _, ok := Apply(indicator.TransformYoY, values, indicator.FreqMonthly, 2); ok {
			t.Error("needs a full year of history")
		}
	})

	t.Run("zero base", func(t *testing.T) {
		values := make([]float64, 13)
		values[12] = 5
		if _, ok := Apply(indicator.TransformYoY, values, indicator.FreqMonthly, 12); ok {
			t.Error("zero base must not compute")
		}
	})

	t.Run("negative base uses absolute", func(t *testing.T) {
		values := make([]float64, 13)
		for i := range values {
			values[i] = -100
		}
		values[12] = -90

		got, ok := Apply(indicator.TransformYoY, values, indicator.FreqMonthly, 12)
		if !ok {
			t.Fatal("expected computable")
		}
		if !almostEqual(got, 10) {
			t.Errorf("got %v, want 10", got)
		}
	})
}

func TestQuarterAnnualized(t *testing.T) {
	t.Run("one percent quarter", func(t *testing.T) {
		values := []float64{100, 101}
		got, ok := Apply(indicator.TransformQoQ, values, indicator.FreqQuarterly, 1)
		if !ok {
			t.Fatal("expected computable")
		}
		want := (math.Pow(1.01, 4) - 1) * 100
		if !almostEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("non-positive level", func(t *testing.T) {
		values := []float64{-1, 100}
		if _, ok := Apply(indicator.TransformQoQ, values, indicator.FreqQuarterly, 1); ok {
			t.Error("non-positive level must not annualize")
		}
	})
}

func TestMonthOverMonth(t *testing.T) {
	values := []float64{200, 210}
	got, ok := Apply(indicator.TransformMoM, values, indicator.FreqMonthly, 1)
	if !ok {
		t.Fatal("expected computable")
	}
	if !almostEqual(got, 5) {
		t.Errorf("got %v, want 5", got)
	}
}

func TestDelta(t *testing.T) {
	values := []float64{160, 180}
	got, ok := Apply(indicator.TransformDelta, values, indicator.FreqMonthly, 1)
	if !ok {
		t.Fatal("expected computable")
	}
	if !almostEqual(got, 20) {
		t.Errorf("got %v, want 20", got)
	}

	if _, ok := Apply(indicator.TransformDelta, values, indicator.FreqMonthly, 0); ok {
		t.Error("first value has no delta")
	}
}

func TestSMA4(t *testing.T) {
	t.Run("trailing average", func(t *testing.T) {
		values := []float64{220, 230, 210, 240}
		got, ok := Apply(indicator.TransformSMA4, values, indicator.FreqWeekly, 3)
		if !ok {
			t.Fatal("expected computable")
		}
		if !almostEqual(got, 225) {
			t.Errorf("got %v, want 225", got)
		}
	})

	t.Run("short series", func(t *testing.T) {
		values := []float64{220, 230, 210}
		if _, ok := Apply(indicator.TransformSMA4, values, indicator.FreqWeekly, 2); ok {
			t.Error("needs 4 observations")
		}
	})
}

func TestRawLevel(t *testing.T) {
	values := []float64{4.25}
	got, ok := Apply(indicator.TransformNone, values, indicator.FreqDaily, 0)
	if !ok || !almostEqual(got, 4.25) {
		t.Errorf("got %v ok=%v, want 4.25 true", got, ok)
	}
}
