package solana

import (
	"math/big"
	"testing"
)

func TestToSmallestUnit(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		decimals uint8
		want     string
		wantErr  bool
	}{
		{"whole number", "10", 6, "10000000", false},
		{"simple decimal", "0.10", 6, "100000", false},
		{"max precision", "0.000001", 6, "1", false},
		{"trailing zeros collapse", "1.500000", 6, "1500000", false},
		{"zero", "0", 6, "0", false},
		{"zero decimals", "5", 0, "5", false},
		{"too many fractional digits", "0.0000001", 6, "", true},
		{"scientific notation rejected", "1e10", 6, "", true},
		{"negative rejected", "-1.0", 6, "", true},
		{"empty rejected", "", 6, "", true},
		{"malformed rejected", "1.2.3", 6, "", true},
		{"non numeric rejected", "abc", 6, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToSmallestUnit(tt.amount, tt.decimals)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.amount)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			want, _ := new(big.Int).SetString(tt.want, 10)
			if got.Cmp(want) != 0 {
				t.Fatalf("ToSmallestUnit(%q, %d) = %s, want %s", tt.amount, tt.decimals, got, want)
			}
		})
	}
}

func TestFromSmallestUnitRoundTrip(t *testing.T) {
	tests := []struct {
		amount   string
		decimals uint8
	}{
		{"0.10", 6},
		{"10", 6},
		{"0.000001", 6},
		{"5", 0},
	}
	for _, tt := range tests {
		smallest, err := ToSmallestUnit(tt.amount, tt.decimals)
		if err != nil {
			t.Fatalf("ToSmallestUnit: %v", err)
		}
		back := FromSmallestUnit(smallest, tt.decimals)
		backSmallest, err := ToSmallestUnit(back, tt.decimals)
		if err != nil {
			t.Fatalf("ToSmallestUnit(FromSmallestUnit(...)): %v", err)
		}
		if backSmallest.Cmp(smallest) != 0 {
			t.Fatalf("round trip mismatch for %q: got %s via %q", tt.amount, backSmallest, back)
		}
	}
}

func TestSmallestUnitComparisonIsExact(t *testing.T) {
	// Regression for the float64+epsilon approach this module replaces:
	// two amounts that differ only far beyond float64's useful precision
	// must still compare unequal via *big.Int.
	a, err := ToSmallestUnit("0.123456", 6)
	if err != nil {
		t.Fatalf("ToSmallestUnit: %v", err)
	}
	b, err := ToSmallestUnit("0.123457", 6)
	if err != nil {
		t.Fatalf("ToSmallestUnit: %v", err)
	}
	if a.Cmp(b) == 0 {
		t.Fatal("amounts one smallest-unit apart must not compare equal")
	}
}
