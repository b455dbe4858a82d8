package circuit

import (
	"errors"
	"testing"
	"time"
)

func TestBreakerOpensAfterFailures(t *testing.T) {
	b := New(3, time.Hour)
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		if err := b.Do(func() error { return boom }); !errors.Is(err, boom) {
			t.Fatalf("call %d: got %v, want boom", i, err)
		}
	}
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}

	var called bool
	err := b.Do(func() error { called = true; return nil })
	if !errors.Is(err, ErrOpen) {
		t.Fatalf("got %v, want ErrOpen", err)
	}
	if called {
		t.Fatal("fn ran while breaker was open")
	}
}

func TestBreakerRecovers(t *testing.T) {
	b := New(1, 10*time.Millisecond)

	if err := b.Do(func() error { return errors.New("boom") }); err == nil {
		t.Fatal("expected failure")
	}
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}

	time.Sleep(20 * time.Millisecond)

	// Probe calls succeed through the half-open state until it closes.
	for i := 0; i < 3; i++ {
		if err := b.Do(func() error { return nil }); err != nil {
			t.Fatalf("probe %d failed: %v", i, err)
		}
	}
	if b.State() != StateClosed {
		t.Fatalf("state = %v, want closed", b.State())
	}
}

func TestBreakerResetsOnSuccess(t *testing.T) {
	b := New(3, time.Hour)
	boom := errors.New("boom")

	_ = b.Do(func() error { return boom })
	_ = b.Do(func() error { return boom })
	_ = b.Do(func() error { return nil })
	_ = b.Do(func() error { return boom })
	_ = b.Do(func() error { return boom })

	if b.State() != StateClosed {
		t.Fatalf("state = %v, want closed after interleaved success", b.State())
	}
}
