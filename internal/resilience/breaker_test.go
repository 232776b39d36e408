package resilience

import (
	"errors"
	"testing"
	"time"
)

var errUpstream = errors.New("upstream failed")

func failing() error { return errUpstream }
func succeeding() error { return nil }

func TestBreakerOpensAfterMaxFailures(t *testing.T) {
	b := NewBreaker("test", 3, time.Minute)

	for i := 0; i < 3; i++ {
		if err := b.Execute(failing); !errors.Is(err, errUpstream) {
			t.Fatalf("Execute #%d = %v", i, err)
		}
	}

	if b.State() != StateOpen {
		t.Fatalf("state = %s, want open", b.State())
	}
	if err := b.Execute(succeeding); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("open breaker admitted a call: %v", err)
	}
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	b := NewBreaker("test", 1, time.Minute)
	now := time.Now()
	b.now = func() time.Time { return now }

	if err := b.Execute(failing); !errors.Is(err, errUpstream) {
		t.Fatal(err)
	}
	if b.State() != StateOpen {
		t.Fatalf("state = %s, want open", b.State())
	}

	// Timeout elapses: a single probe is admitted.
	now = now.Add(2 * time.Minute)
	if b.State() != StateHalfOpen {
		t.Fatalf("state = %s, want half-open", b.State())
	}
	if err := b.Execute(succeeding); err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if b.State() != StateClosed {
		t.Errorf("state after successful probe = %s, want closed", b.State())
	}
}

func TestBreakerReopensOnFailedProbe(t *testing.T) {
	b := NewBreaker("test", 1, time.Minute)
	now := time.Now()
	b.now = func() time.Time { return now }

	_ = b.Execute(failing)
	now = now.Add(2 * time.Minute)

	if err := b.Execute(failing); !errors.Is(err, errUpstream) {
		t.Fatal(err)
	}
	if b.State() != StateOpen {
		t.Errorf("state after failed probe = %s, want open", b.State())
	}
}

func TestBreakerSuccessResetsFailures(t *testing.T) {
	b := NewBreaker("test", 2, time.Minute)

	_ = b.Execute(failing)
	_ = b.Execute(succeeding)
	_ = b.Execute(failing)

	if b.State() != StateClosed {
		t.Errorf("state = %s, want closed (failure count reset)", b.State())
	}
}

func TestStateString(t *testing.T) {
	if StateClosed.String() != "closed" || StateOpen.String() != "open" || StateHalfOpen.String() != "half-open" {
		t.Error("state names changed")
	}
}
