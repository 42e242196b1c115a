package model

import "testing"

// TestBandFor tests the similarity band boundaries.
func TestBandFor(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		similarity float64
		expected   Band
	}{
		{"exactly 0.9 is high", 0.9, BandHigh},
		{"1.0 is high", 1.0, BandHigh},
		{"0.95 is high", 0.95, BandHigh},
		{"exactly 0.8 is medium", 0.8, BandMedium},
		{"0.89 is medium", 0.89, BandMedium},
		{"0.79 is low", 0.79, BandLow},
		{"zero is low", 0, BandLow},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := BandFor(tc.similarity); got != tc.expected {
				t.Errorf("BandFor(%v) = %v, expected %v", tc.similarity, got, tc.expected)
			}
		})
	}
}

// TestBandLabels tests the display helpers of each band.
func TestBandLabels(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		band  Band
		class string
		label string
	}{
		{BandHigh, "high-similarity", "Risque élevé"},
		{BandMedium, "medium-similarity", "Risque moyen"},
		{BandLow, "low-similarity", "Risque faible"},
	}

	for _, tc := range testCases {
		t.Run(tc.class, func(t *testing.T) {
			t.Parallel()
			if tc.band.Class() != tc.class {
				t.Errorf("got class %q, expected %q", tc.band.Class(), tc.class)
			}
			if tc.band.Label() != tc.label {
				t.Errorf("got label %q, expected %q", tc.band.Label(), tc.label)
			}
		})
	}

	if Band(42).String() != "unknown" {
		t.Error("expected unknown band name")
	}
}
