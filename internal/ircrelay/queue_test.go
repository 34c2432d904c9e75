package ircrelay

import (
	"log/slog"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(nopWriter{}, nil))
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestMsgQueueDefaults(t *testing.T) {
	q := newMsgQueue(0, ChannelKey{Server: "srv", Channel: "a"}, discardLogger())
	if q.maxSize != 2048 {
		t.Errorf("expected default maxSize 2048, got %d", q.maxSize)
	}
	if q.Len() != 0 {
		t.Errorf("expected empty queue, got len %d", q.Len())
	}
}

func TestMsgQueueEnqueuePeekPop(t *testing.T) {
	key := ChannelKey{Server: "srv", Channel: "a"}
	q := newMsgQueue(10, key, discardLogger())

	for i := 0; i < 5; i++ {
		if dropped := q.Enqueue("m"); dropped {
			t.Fatalf("should not drop while under capacity (i=%d)", i)
		}
	}
	if q.Len() != 5 {
		t.Fatalf("expected len 5, got %d", q.Len())
	}

	text, ok := q.Peek()
	if !ok || text != "m" {
		t.Fatalf("expected to peek head, got %q ok=%v", text, ok)
	}
	q.Pop()
	if q.Len() != 4 {
		t.Fatalf("expected len 4 after pop, got %d", q.Len())
	}
}

func TestMsgQueueOrderPreserved(t *testing.T) {
	key := ChannelKey{Server: "srv", Channel: "a"}
	q := newMsgQueue(10, key, discardLogger())

	q.Enqueue("first")
	q.Enqueue("second")
	q.Enqueue("third")

	for _, want := range []string{"first", "second", "third"} {
		got, ok := q.Peek()
		if !ok || got != want {
			t.Fatalf("expected %q, got %q (ok=%v)", want, got, ok)
		}
		q.Pop()
	}
}

func TestMsgQueueDropsOldestWhenFull(t *testing.T) {
	key := ChannelKey{Server: "srv", Channel: "a"}
	q := newMsgQueue(3, key, discardLogger())

	q.Enqueue("a")
	q.Enqueue("b")
	q.Enqueue("c")

	dropped := q.Enqueue("d")
	if !dropped {
		t.Fatal("expected Enqueue to report a drop once full")
	}
	if q.Len() != 3 {
		t.Fatalf("expected len to stay at capacity 3, got %d", q.Len())
	}

	got, ok := q.Peek()
	if !ok || got != "b" {
		t.Fatalf("expected oldest ('a') dropped, head now %q", got)
	}

	stats := q.Stats()
	if stats.TotalDropped != 1 {
		t.Errorf("expected 1 total dropped, got %d", stats.TotalDropped)
	}
	if stats.TotalEnqueued != 4 {
		t.Errorf("expected 4 total enqueued, got %d", stats.TotalEnqueued)
	}
}

func TestMsgQueuePopEmptyIsNoop(t *testing.T) {
	q := newMsgQueue(3, ChannelKey{Server: "srv", Channel: "a"}, discardLogger())
	q.Pop()
	if q.Len() != 0 {
		t.Fatalf("expected len 0, got %d", q.Len())
	}
}
