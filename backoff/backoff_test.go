package backoff

import (
	"context"
	"testing"
	"time"
)

func TestDelay(t *testing.T) {
	tests := []struct {
		name    string
		base    time.Duration
		max     time.Duration
		attempt int
		want    time.Duration
	}{
		{name: "first attempt", base: 200 * time.Millisecond, max: 2 * time.Second, attempt: 1, want: 200 * time.Millisecond},
		{name: "doubles", base: 200 * time.Millisecond, max: 0, attempt: 3, want: 800 * time.Millisecond},
		{name: "capped", base: 200 * time.Millisecond, max: 500 * time.Millisecond, attempt: 4, want: 500 * time.Millisecond},
		{name: "zero attempt treated as first", base: time.Second, max: 0, attempt: 0, want: time.Second},
		{name: "default base", base: 0, max: 0, attempt: 2, want: 200 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Delay(tt.base, tt.max, tt.attempt); got != tt.want {
				t.Fatalf("Delay(%v, %v, %d) = %v, want %v", tt.base, tt.max, tt.attempt, got, tt.want)
			}
		})
	}
}

func TestWaitStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if err := Wait(ctx, time.Hour); err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("wait ignored cancellation")
	}
}

func TestWaitElapses(t *testing.T) {
	if err := Wait(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("wait: %v", err)
	}
}
