package mathutil

import (
	"math"
	"testing"
)

func TestMedian(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
		ok     bool
	}{
		{"odd count", []float64{3, 1, 2}, 2, true},
		{"even count averages middle", []float64{4, 1, 3, 2}, 2.5, true},
		{"single", []float64{7}, 7, true},
		{"empty", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Median(tt.values)
			if ok != tt.ok {
				t.Fatalf("Median ok = %v, want %v", ok, tt.ok)
			}
			if ok && math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Median(%v) = %v, want %v", tt.values, got, tt.want)
			}
		})
	}
}

func TestQuantile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}

	tests := []struct {
		q    float64
		want float64
	}{
		{0, 1},
		{0.25, 1.75},
		{0.5, 2.5},
		{0.75, 3.25},
		{1, 4},
	}

	for _, tt := range tests {
		got, ok := Quantile(sorted, tt.q)
		if !ok {
			t.Fatalf("Quantile(%v, %v) not ok", sorted, tt.q)
		}
		if math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("Quantile(%v, %v) = %v, want %v", sorted, tt.q, got, tt.want)
		}
	}
}

func TestIQR(t *testing.T) {
	got, ok := IQR([]float64{1, 2, 3, 4})
	if !ok {
		t.Fatal("IQR not ok")
	}
	if math.Abs(got-1.5) > 1e-12 {
		t.Errorf("IQR = %v, want 1.5", got)
	}

	if _, ok := IQR(nil); ok {
		t.Error("IQR(nil) should not be ok")
	}
}

func TestRoundTo(t *testing.T) {
	if got := RoundTo(0.1234567, 6); math.Abs(got-0.123457) > 1e-12 {
		t.Errorf("RoundTo 6 places = %v", got)
	}
	if got := RoundTo(29.7001, 2); math.Abs(got-29.7) > 1e-12 {
		t.Errorf("RoundTo 2 places = %v", got)
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(1.5, 0, 1); got != 1 {
		t.Errorf("Clamp above = %v", got)
	}
	if got := Clamp(-0.2, 0, 1); got != 0 {
		t.Errorf("Clamp below = %v", got)
	}
	if got := Clamp(0.4, 0, 1); got != 0.4 {
		t.Errorf("Clamp inside = %v", got)
	}
}
