package server

import (
	"sync"
	"testing"
)

func TestConnectionLimiterAdmitsUpToLimit(t *testing.T) {
	limiter := NewConnectionLimiter(3)

	for i := 0; i < 3; i++ {
		if !limiter.TryAcquire() {
			t.Errorf("TryAcquire %d should admit a client", i+1)
		}
	}

	if limiter.Current() != 3 {
		t.Errorf("Current() = %d, want 3", limiter.Current())
	}

	if limiter.TryAcquire() {
		t.Error("TryAcquire should reject a client at capacity")
	}
}

func TestConnectionLimiterReleaseReopensSlot(t *testing.T) {
	limiter := NewConnectionLimiter(1)

	if !limiter.TryAcquire() {
		t.Fatal("first TryAcquire should admit a client")
	}
	if limiter.TryAcquire() {
		t.Fatal("second TryAcquire should reject at capacity")
	}

	limiter.Release()

	if !limiter.TryAcquire() {
		t.Error("TryAcquire after Release should admit a client")
	}
}

func TestConnectionLimiterCurrent(t *testing.T) {
	limiter := NewConnectionLimiter(10)

	if limiter.Current() != 0 {
		t.Errorf("initial Current() = %d, want 0", limiter.Current())
	}

	limiter.TryAcquire()
	limiter.TryAcquire()

	if limiter.Current() != 2 {
		t.Errorf("Current() = %d, want 2", limiter.Current())
	}

	limiter.Release()

	if limiter.Current() != 1 {
		t.Errorf("Current() after Release = %d, want 1", limiter.Current())
	}
}

// 200 clients race for 100 slots; exactly 100 get in.
func TestConnectionLimiterConcurrentAdmission(t *testing.T) {
	limiter := NewConnectionLimiter(100)

	var wg sync.WaitGroup
	admitted := make(chan struct{}, 200)

	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.TryAcquire() {
				admitted <- struct{}{}
			}
		}()
	}

	wg.Wait()
	close(admitted)

	count := 0
	for range admitted {
		count++
	}

	if count != 100 {
		t.Errorf("admitted %d clients, want 100", count)
	}
	if limiter.Current() != 100 {
		t.Errorf("Current() = %d, want 100", limiter.Current())
	}
}

func TestConnectionLimiterConcurrentChurn(t *testing.T) {
	limiter := NewConnectionLimiter(10)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if limiter.TryAcquire() {
					limiter.Release()
				}
			}
		}()
	}

	wg.Wait()

	if limiter.Current() != 0 {
		t.Errorf("Current() after churn = %d, want 0", limiter.Current())
	}
}
