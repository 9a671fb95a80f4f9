package pipeline

import (
	"testing"
	"time"
)

func TestPushPopFIFOOrder(t *testing.T) {
	q := NewQueue[int](4)
	for i := 0; i < 4; i++ {
		if !q.Push(i) {
			t.Fatalf("Push(%d) = false, want true", i)
		}
	}
	for i := 0; i < 4; i++ {
		v, ok := q.Pop()
		if !ok || v != i {
			t.Errorf("Pop() = (%d, %v), want (%d, true)", v, ok, i)
		}
	}
}

func TestPushBlocksWhenFull(t *testing.T) {
	q := NewQueue[int](1)
	q.Push(1)

	done := make(chan bool)
	go func() { done <- q.Push(2) }()

	select {
	case <-done:
		t.Fatal("Push on a full queue returned before any Pop freed space")
	case <-time.After(30 * time.Millisecond):
	}

	q.Pop()
	select {
	case ok := <-done:
		if !ok {
			t.Error("blocked Push returned false after space freed up")
		}
	case <-time.After(time.Second):
		t.Fatal("blocked Push never woke up after Pop freed space")
	}
}

func TestPopBlocksWhenEmpty(t *testing.T) {
	q := NewQueue[int](4)
	done := make(chan int)
	go func() {
		v, _ := q.Pop()
		done <- v
	}()

	select {
	case <-done:
		t.Fatal("Pop on an empty queue returned before any Push")
	case <-time.After(30 * time.Millisecond):
	}

	q.Push(42)
	select {
	case v := <-done:
		if v != 42 {
			t.Errorf("Pop() = %d, want 42", v)
		}
	case <-time.After(time.Second):
		t.Fatal("blocked Pop never woke up after Push")
	}
}

func TestCloseWakesBlockedPushAndPop(t *testing.T) {
	q := NewQueue[int](1)
	q.Push(1) // fill it

	pushDone := make(chan bool)
	go func() { pushDone <- q.Push(2) }()

	popDone := make(chan bool)
	go func() {
		q.Pop() // drains the one queued item
		_, ok := q.Pop()
		popDone <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	q.Close()

	select {
	case ok := <-pushDone:
		if ok {
			t.Error("Push on a closed, still-full queue returned true")
		}
	case <-time.After(time.Second):
		t.Fatal("Close did not wake blocked Push")
	}
	select {
	case ok := <-popDone:
		if ok {
			t.Error("Pop on a closed, empty queue returned true")
		}
	case <-time.After(time.Second):
		t.Fatal("Close did not wake blocked Pop")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	q := NewQueue[int](1)
	q.Close()
	q.Close()
}
