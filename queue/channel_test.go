package queue_test

import (
	"testing"
	"time"

	"github.com/momentics/hioload-ws/queue"
)

func TestSendRecvFIFO(t *testing.T) {
	c := queue.New[int]()
	c.Send(1)
	c.Send(2)
	c.Send(3)

	for _, want := range []int{1, 2, 3} {
		got, ok := c.Recv()
		if !ok || got != want {
			t.Fatalf("Recv() = %v, %v, want %v, true", got, ok, want)
		}
	}
}

func TestTryRecvEmpty(t *testing.T) {
	c := queue.New[int]()
	if _, ok := c.TryRecv(); ok {
		t.Error("TryRecv() on empty channel returned ok=true")
	}
}

func TestPending(t *testing.T) {
	c := queue.New[int]()
	c.Send(1)
	c.Send(2)
	if n := c.Pending(); n != 2 {
		t.Errorf("Pending() = %d, want 2", n)
	}
}

func TestRecvBlocksUntilSend(t *testing.T) {
	c := queue.New[int]()
	done := make(chan int)
	go func() {
		v, _ := c.Recv()
		done <- v
	}()
	time.Sleep(10 * time.Millisecond)
	c.Send(99)
	select {
	case v := <-done:
		if v != 99 {
			t.Errorf("Recv() = %d, want 99", v)
		}
	case <-time.After(time.Second):
		t.Fatal("Recv() never returned")
	}
}

func TestCloseWakesBlockedReceivers(t *testing.T) {
	c := queue.New[int]()
	done := make(chan bool)
	go func() {
		_, ok := c.Recv()
		done <- ok
	}()
	time.Sleep(10 * time.Millisecond)
	c.Close()
	select {
	case ok := <-done:
		if ok {
			t.Error("Recv() after Close returned ok=true")
		}
	case <-time.After(time.Second):
		t.Fatal("Recv() never unblocked on Close")
	}
}

func TestDrainInvokesFnOnEachItem(t *testing.T) {
	c := queue.New[int]()
	c.Send(1)
	c.Send(2)
	c.Send(3)
	var drained []int
	c.Drain(func(v int) { drained = append(drained, v) })
	if len(drained) != 3 {
		t.Fatalf("drained %d items, want 3", len(drained))
	}
	if c.Pending() != 0 {
		t.Errorf("Pending() = %d after Drain, want 0", c.Pending())
	}
}
