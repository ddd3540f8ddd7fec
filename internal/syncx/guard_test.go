package syncx

import (
	"sync"
	"testing"
)

func TestGuardGetSet(t *testing.T) {
	g := NewGuard(42)

	if got := g.Get(); got != 42 {
		t.Errorf("Get() = %d, want 42", got)
	}

	g.Set(100)
	if got := g.Get(); got != 100 {
		t.Errorf("Get() after Set = %d, want 100", got)
	}
}

func TestGuardSwap(t *testing.T) {
	g := NewGuard("hello")

	old := g.Swap("world")
	if old != "hello" {
		t.Errorf("Swap returned %q, want %q", old, "hello")
	}
	if got := g.Get(); got != "world" {
		t.Errorf("Get() after Swap = %q, want %q", got, "world")
	}
}

func TestGuardUpdate(t *testing.T) {
	g := NewGuard(10)

	g.Update(func(v *int) {
		*v = 20
	})

	if got := g.Get(); got != 20 {
		t.Errorf("Get() = %d, want 20", got)
	}
}

func TestGuardZeroValueUsable(t *testing.T) {
	var g Guard[string]
	if got := g.Get(); got != "" {
		t.Errorf("zero value Get() = %q, want empty", got)
	}
	g.Set("ready")
	if got := g.Get(); got != "ready" {
		t.Errorf("Get() = %q, want ready", got)
	}
}

func TestGuardConcurrentSafety(t *testing.T) {
	g := NewGuard(0)
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.Update(func(v *int) {
				*v++
			})
		}()
	}

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = g.Get()
		}()
	}

	wg.Wait()

	if got := g.Get(); got != 100 {
		t.Errorf("Get() = %d, want 100", got)
	}
}

func TestGuardWithStruct(t *testing.T) {
	type state struct {
		failures  int
		successes int
	}

	g := NewGuard(state{})

	g.Update(func(s *state) {
		s.failures = 5
		s.successes = 10
	})

	got := g.Get()
	if got.failures != 5 || got.successes != 10 {
		t.Errorf("Get() = %+v, want {5, 10}", got)
	}
}
