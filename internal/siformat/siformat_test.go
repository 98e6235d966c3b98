package siformat

import (
	"math"
	"testing"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, " 0.000"},
		{1, " 1.000"},
		{150, "150.00"},
		{12345, "12,345"},
		{1e6, "1.000M"},
		{2.5e6, "2.500M"},
		{250e3, "250.0k"},
		{2.5e-3, "2.500m"},
		{12.5e-6, "12.50µ"},
		{3e-9, "3.000n"},
		{-0.5, " -500m"},
		{-2, "-2.000"},
		{4.2e15, "4.200P"},
	}
	for _, tt := range tests {
		if got := Format(tt.in); got != tt.want {
			t.Errorf("Format(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatInteger(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "     0"},
		{7, "     7"},
		{1000, " 1,000"},
		{12345, "12,345"},
		{3000000, "3.000M"},
	}
	for _, tt := range tests {
		if got := FormatInt(tt.in); got != tt.want {
			t.Errorf("FormatInt(%d) = %q, want %q", tt.in, got, tt.want)
		}
		if got := FormatInteger(float64(tt.in)); got != tt.want {
			t.Errorf("FormatInteger(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatDifference(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{math.NaN(), "   N/A"},
		{1.1, "2.100x"},
		{0.25, "+25.0%"},
		{-0.5, "-50.0%"},
		{0, " 0.00%"},
		{0.05, "+5.00%"},
		{1.0, " +100%"},
		{-1.0, " -100%"},
		{20, "21.00x"},
	}
	for _, tt := range tests {
		if got := FormatDifference(tt.in); got != tt.want {
			t.Errorf("FormatDifference(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
