package utils

import "testing"

func TestMinFloat(t *testing.T) {
	if got := MinFloat(3, 5); got != 3 {
		t.Errorf("MinFloat(3, 5) = %v, want 3", got)
	}
	if got := MinFloat(5, -2); got != -2 {
		t.Errorf("MinFloat(5, -2) = %v, want -2", got)
	}
	if got := MinFloat(4, 4); got != 4 {
		t.Errorf("MinFloat(4, 4) = %v, want 4", got)
	}
}

func TestRoundCurrency(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{100.005, 100.01},
		{100.004, 100.0},
		{-50.555, -50.56},
		{0.1 + 0.2, 0.3},
	}
	for _, tc := range cases {
		if got := RoundCurrency(tc.in); got != tc.want {
			t.Errorf("RoundCurrency(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestFormatCurrency(t *testing.T) {
	if got := FormatCurrency(1234.5); got != "1234.50" {
		t.Errorf("FormatCurrency(1234.5) = %q, want 1234.50", got)
	}
	if got := FormatCurrency(-0.005); got != "-0.01" {
		t.Errorf("FormatCurrency(-0.005) = %q, want -0.01", got)
	}
}
