package singleflight

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	g := New[string]()
	if g == nil {
		t.Fatal("New() returned nil")
	}
	if g.m == nil {
		t.Error("New() did not initialize map")
	}
}

func TestDo(t *testing.T) {
	g := New[string]()

	val, err, shared := g.Do("key1", func() (string, error) {
		return "hello", nil
	})

	if err != nil {
		t.Errorf("Do() returned error: %v", err)
	}
	if val != "hello" {
		t.Errorf("Do() returned %v, want hello", val)
	}
	if shared {
		t.Error("Do() reported a shared result for a single caller")
	}
	if g.InFlight("key1") {
		t.Error("key should be forgotten after completion")
	}
}

func TestDoError(t *testing.T) {
	g := New[*int]()
	expectedErr := errors.New("test error")

	val, err, _ := g.Do("key1", func() (*int, error) {
		return nil, expectedErr
	})

	if err != expectedErr {
		t.Errorf("Do() returned error %v, want %v", err, expectedErr)
	}
	if val != nil {
		t.Errorf("Do() returned %v, want nil", val)
	}
}

func TestDoDuplicateCalls(t *testing.T) {
	g := New[string]()

	var callCount int32
	release := make(chan struct{})
	started := make(chan struct{})

	fn := func() (string, error) {
		if atomic.AddInt32(&callCount, 1) == 1 {
			close(started)
		}
		<-release
		return "result", nil
	}

	const numCalls = 10
	var wg sync.WaitGroup
	results := make([]string, numCalls)
	sharedFlags := make([]bool, numCalls)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _, sharedFlags[0] = g.Do("same-key", fn)
	}()
	<-started

	for i := 1; i < numCalls; i++ {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			results[index], _, sharedFlags[index] = g.Do("same-key", fn)
		}(i)
	}

	// let the waiters register before releasing the owner
	for deadline := time.Now().Add(time.Second); time.Now().Before(deadline); {
		g.mu.Lock()
		dups := g.m["same-key"].dups
		g.mu.Unlock()
		if dups == numCalls-1 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	close(release)
	wg.Wait()

	if got := atomic.LoadInt32(&callCount); got != 1 {
		t.Errorf("Expected 1 execution, got %d", got)
	}
	for i, r := range results {
		if r != "result" {
			t.Errorf("Call %d returned %q, want result", i, r)
		}
		if !sharedFlags[i] {
			t.Errorf("Call %d should report a shared result", i)
		}
	}
}

func TestWaiters(t *testing.T) {
	g := New[int]()
	release := make(chan struct{})
	started := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _, _ = g.Do("key", func() (int, error) {
			close(started)
			<-release
			return 1, nil
		})
	}()
	<-started

	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = g.Do("key", func() (int, error) { return 2, nil })
		}()
	}

	deadline := time.Now().Add(2 * time.Second)
	for g.Waiters("key") < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if n := g.Waiters("key"); n != 3 {
		t.Errorf("Expected 3 waiters, got %d", n)
	}

	close(release)
	wg.Wait()

	if n := g.Waiters("key"); n != 0 {
		t.Errorf("Expected no waiters after completion, got %d", n)
	}
}
