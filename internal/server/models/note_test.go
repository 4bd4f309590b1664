package models

import "testing"

func TestOriginValid(t *testing.T) {
	tests := []struct {
		origin Origin
		want   bool
	}{
		{OriginManual, true},
		{OriginScan, true},
		{Origin(""), false},
		{Origin("typed"), false},
		{Origin("Manual"), false},
	}
	for _, tc := range tests {
		if got := tc.origin.Valid(); got != tc.want {
			t.Errorf("Origin(%q).Valid() = %v, want %v", tc.origin, got, tc.want)
		}
	}
}
