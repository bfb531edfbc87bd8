package runtime_test

import (
	"testing"
	"time"

	"github.com/momentics/hioload-ws/runtime"
)

func TestExecuteBlockOn(t *testing.T) {
	p := runtime.New(2, 4)
	defer p.Stop()

	h := p.Execute(func() any { return 21 * 2 })
	if got := h.BlockOn(); got != 42 {
		t.Errorf("BlockOn() = %v, want 42", got)
	}
	if !h.IsComplete() {
		t.Error("IsComplete() = false after BlockOn returned")
	}
}

func TestPoolExpandsUnderLoad(t *testing.T) {
	p := runtime.New(1, 4)
	defer p.Stop()

	release := make(chan struct{})
	for i := 0; i < 4; i++ {
		p.Execute(func() any {
			<-release
			return nil
		})
	}

	deadline := time.Now().Add(time.Second)
	for p.NumWorkers() < 4 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if n := p.NumWorkers(); n < 2 {
		t.Errorf("NumWorkers() = %d, want growth beyond min(1) under load", n)
	}
	close(release)
}

func TestPoolNeverExceedsMax(t *testing.T) {
	p := runtime.New(1, 2)
	defer p.Stop()

	release := make(chan struct{})
	for i := 0; i < 10; i++ {
		p.Execute(func() any { <-release; return nil })
	}
	time.Sleep(50 * time.Millisecond)
	if n := p.NumWorkers(); n > 2 {
		t.Errorf("NumWorkers() = %d, want <= 2 (max)", n)
	}
	close(release)
}

func TestStopJoinsAllWorkers(t *testing.T) {
	p := runtime.New(3, 3)
	done := make(chan struct{})
	go func() {
		p.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() did not return in time")
	}
}
