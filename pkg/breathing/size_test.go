package breathing

import (
	"errors"
	"math"
	"testing"
)

func TestChestSize(t *testing.T) {
	tests := []struct {
		name string
		w, h float64
		want float64
	}{
		// 0.6*0.08 + 0.2*0.5 + 0.2*1.2
		{"typical chest", 0.2, 0.4, 0.388},
		{"square", 0.5, 0.5, 0.6*0.25 + 0.2*1 + 0.2*2},
		{"zero width", 0, 0.3, 0.2 * 0.6},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ChestSize(tc.w, tc.h, DefaultWeights())
			if err != nil {
				t.Fatalf("ChestSize failed: %v", err)
			}
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("ChestSize(%v, %v): got %v, want %v", tc.w, tc.h, got, tc.want)
			}
		})
	}
}

func TestChestSize_Deterministic(t *testing.T) {
	a, _ := ChestSize(0.31, 0.47, DefaultWeights())
	b, _ := ChestSize(0.31, 0.47, DefaultWeights())
	if a != b {
		t.Errorf("ChestSize not deterministic: %v vs %v", a, b)
	}
}

func TestChestSize_IncreasesWithWidth(t *testing.T) {
	prev := -1.0
	for _, w := range []float64{0.05, 0.1, 0.2, 0.4, 0.8} {
		size, err := ChestSize(w, 0.3, DefaultWeights())
		if err != nil {
			t.Fatal(err)
		}
		if size <= prev {
			t.Errorf("size did not increase at w=%v: %v <= %v", w, size, prev)
		}
		prev = size
	}
}

func TestChestSize_Degenerate(t *testing.T) {
	tests := []struct {
		name string
		w, h float64
	}{
		{"zero height", 0.2, 0},
		{"negative height", 0.2, -0.1},
		{"negative width", -0.2, 0.3},
		{"nan width", math.NaN(), 0.3},
		{"inf height", 0.2, math.Inf(1)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ChestSize(tc.w, tc.h, DefaultWeights())
			if !errors.Is(err, ErrDegenerateBox) {
				t.Errorf("Expected ErrDegenerateBox, got %v", err)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"zero thresholds", func(c *Config) { c.StatusThreshold, c.BreathingThreshold = 0, 0 }, false},
		{"negative status", func(c *Config) { c.StatusThreshold = -0.1 }, true},
		{"breathing too large", func(c *Config) { c.BreathingThreshold = 1 }, true},
		{"nan threshold", func(c *Config) { c.BreathingThreshold = math.NaN() }, true},
		{"negative weight", func(c *Config) { c.Weights.Ratio = -1 }, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
