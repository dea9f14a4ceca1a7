package ta

import (
	"math"
	"testing"
)

func TestLast(t *testing.T) {
	s := []float64{1, 2, 3, 4, 5}
	if got := Last(s, 0); got != 5 {
		t.Fatalf("Last(s, 0) = %v, want 5", got)
	}
	if got := Last(s, 2); got != 3 {
		t.Fatalf("Last(s, 2) = %v, want 3", got)
	}
}

func TestCrossover(t *testing.T) {
	fast := []float64{1, 2, 3, 5}
	slow := []float64{4, 4, 4, 4}
	if !Crossover(fast, slow) {
		t.Fatalf("expected crossover when fast moves above slow on last bar")
	}
	if Crossunder(fast, slow) {
		t.Fatalf("crossunder must not trigger on an upward cross")
	}
	if !Cross(fast, slow) {
		t.Fatalf("cross should trigger in either direction")
	}
}

func TestCrossunder(t *testing.T) {
	fast := []float64{5, 5, 5, 3}
	slow := []float64{4, 4, 4, 4}
	if !Crossunder(fast, slow) {
		t.Fatalf("expected crossunder when fast moves below slow on last bar")
	}
	if Crossover(fast, slow) {
		t.Fatalf("crossover must not trigger on a downward cross")
	}
}

func TestMean(t *testing.T) {
	if got := Mean([]float64{2, 4, 6}); got != 4 {
		t.Fatalf("Mean = %v, want 4", got)
	}
	if got := Mean(nil); got != 0 {
		t.Fatalf("Mean(nil) = %v, want 0", got)
	}
}

func TestSlope(t *testing.T) {
	s := []float64{10, 11, 12, 13, 14}
	got := Slope(s, 4)
	if math.Abs(got-1) > 1e-9 {
		t.Fatalf("Slope = %v, want 1", got)
	}
	if got := Slope(s, 10); got != 0 {
		t.Fatalf("Slope with lookback beyond series = %v, want 0", got)
	}
}

func TestLowestHighest(t *testing.T) {
	s := []float64{9, 3, 7, 5, 8}
	if got := Lowest(s, 3); got != 5 {
		t.Fatalf("Lowest over last 3 = %v, want 5", got)
	}
	if got := Highest(s, 3); got != 8 {
		t.Fatalf("Highest over last 3 = %v, want 8", got)
	}
}

func TestLastValues(t *testing.T) {
	s := []float64{1, 2, 3, 4}
	got := LastValues(s, 2)
	if len(got) != 2 || got[0] != 3 || got[1] != 4 {
		t.Fatalf("LastValues = %v, want [3 4]", got)
	}
	if got := LastValues(s, 10); len(got) != 4 {
		t.Fatalf("LastValues beyond length should return whole series, got %v", got)
	}
}
