package validation

import "testing"

func TestSameMarket(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"Match Winner", "1X2", true},
		{"match winner", "Fulltime Result", true},
		{"Goals Over/Under", "Total Goals", true},
		{"Both Teams Score", "BTTS", true},
		{"Match Winner", "Goals Over/Under", false},
		{"Corners Over/Under", "corners over/under", true},
		{"Corners Over/Under", "Goals Over/Under", false},
	}
	for _, tt := range tests {
		if got := sameMarket(tt.a, tt.b); got != tt.want {
			t.Errorf("sameMarket(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSameSelection(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"Home", "1", true},
		{"X", "Draw", true},
		{"Away", "2", true},
		{"Home", "2", false},
		{"Over", "Under", false},
		{"Yes", "yes", true},
	}
	for _, tt := range tests {
		if got := sameSelection(tt.a, tt.b); got != tt.want {
			t.Errorf("sameSelection(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
