package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestSpinnerStartStop(t *testing.T) {
	s := newSpinner("Testing...")
	s.Start()
	time.Sleep(100 * time.Millisecond)
	s.Stop()
}

func TestSpinnerWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	s := newSpinnerWithContext(ctx, "Testing with context...")
	s.Start()
	cancel()
	time.Sleep(100 * time.Millisecond)

	if !s.Cancelled() {
		t.Error("Spinner should be cancelled after context cancellation")
	}
	s.Stop()
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	s := newSpinner("Testing idempotent stop...")
	s.Start()
	s.Stop()
	s.Stop()
	s.Stop()
}

func TestSpinnerStopWithoutStart(t *testing.T) {
	s := newSpinner("never started")
	s.Stop()
}

func TestSpinnerDrawsOnlyWhenEnabled(t *testing.T) {
	tests := []struct {
		name     string
		enabled  bool
		wantDraw bool
	}{
		{"terminal", true, true},
		{"pipe", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			s := newSpinner("Looking up latest serde")
			s.out = &buf
			s.enabled = tt.enabled

			s.draw("⠋")
			got := strings.Contains(buf.String(), "Looking up latest serde")
			if got != tt.wantDraw {
				t.Errorf("drew message = %v, want %v (output %q)", got, tt.wantDraw, buf.String())
			}
		})
	}
}
