package main

import (
	"strings"
	"testing"

	"github.com/teslashibe/go-breathe/pkg/breathing"
	"github.com/teslashibe/go-breathe/pkg/pipeline"
	"github.com/teslashibe/go-breathe/pkg/web"
)

func TestFormatStatus(t *testing.T) {
	tests := []struct {
		name string
		st   web.Status
		want []string
	}{
		{
			name: "transition",
			st: web.Status{Seq: 12, Outcome: pipeline.Processed, Phase: breathing.PhaseInhaling,
				Status: breathing.StatusInhale, Transition: true, ChestSize: 0.5, RelativeChange: 0.05},
			want: []string{"12", "*", "inhaling", "size=0.5000", "change=+0.0500", "Inhale"},
		},
		{
			name: "skipped",
			st:   web.Status{Seq: 3, Outcome: pipeline.BelowThreshold, Confidence: 0.02},
			want: []string{"3", "below_threshold", "conf=0.02"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := formatStatus(tc.st)
			for _, w := range tc.want {
				if !strings.Contains(got, w) {
					t.Errorf("formatStatus: %q missing %q", got, w)
				}
			}
		})
	}
}
