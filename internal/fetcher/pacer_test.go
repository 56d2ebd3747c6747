package fetcher

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPacerDelayWithinRange(t *testing.T) {
	p := NewPacer(0, 10*time.Millisecond, 30*time.Millisecond)
	for i := 0; i < 100; i++ {
		d := p.Delay()
		if d < 10*time.Millisecond || d > 30*time.Millisecond {
			t.Fatalf("delay %s outside [10ms, 30ms]", d)
		}
	}
}

func TestPacerFixedDelay(t *testing.T) {
	p := NewPacer(0, 5*time.Millisecond, 5*time.Millisecond)
	if d := p.Delay(); d != 5*time.Millisecond {
		t.Errorf("expected fixed 5ms, got %s", d)
	}
}

func TestPacerWaitCanceled(t *testing.T) {
	p := NewPacer(0, time.Hour, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestPacerWaitZeroDelay(t *testing.T) {
	p := NewPacer(1000, 0, 0)
	start := time.Now()
	if err := p.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	if time.Since(start) > time.Second {
		t.Error("zero-delay wait took too long")
	}
}
