package client

import (
	"testing"
	"time"
)

func TestExponentialBackoff(t *testing.T) {
	b := &ExponentialBackoff{Base: 100 * time.Millisecond, Max: time.Second, Factor: 2}

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{4, time.Second}, // capped
		{10, time.Second},
		{-1, 100 * time.Millisecond},
	}
	for _, tc := range cases {
		if got := b.Next(tc.attempt); got != tc.want {
			t.Errorf("Next(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestExponentialBackoffJitterBounds(t *testing.T) {
	b := DefaultBackoff()
	for attempt := 0; attempt < 8; attempt++ {
		for i := 0; i < 50; i++ {
			d := b.Next(attempt)
			if d < 0 {
				t.Fatalf("Next(%d) = %v, negative", attempt, d)
			}
			limit := time.Duration(float64(b.Max) * (1 + b.Jitter))
			if d > limit {
				t.Fatalf("Next(%d) = %v exceeds jittered cap %v", attempt, d, limit)
			}
		}
	}
}
