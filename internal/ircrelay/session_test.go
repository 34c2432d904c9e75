package ircrelay

import (
	"context"
	"testing"
	"time"
)

func waitFor(t *testing.T, desc string, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for: %s", desc)
}

func TestSessionDeliversInOrder(t *testing.T) {
	ff := &fakeFactory{}
	pool := newPool(testConfig(), ff.make, discardLogger())
	key := ChannelKey{Server: "srv", Port: 6667, Channel: "a"}
	s := newSession(key, pool, 10, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.run(ctx)

	s.Deliver("hi")
	s.Deliver("there")

	waitFor(t, "two messages sent", func() bool {
		return len(ff.all()) == 1 && len(ff.all()[0].sentTexts()) == 2
	})

	sent := ff.all()[0].sentTexts()
	if sent[0] != "hi" || sent[1] != "there" {
		t.Fatalf("expected in-order delivery, got %v", sent)
	}

	joined := ff.all()[0].joined
	if len(joined) != 1 || joined[0] != "#a" {
		t.Fatalf("expected a single JOIN #a, got %v", joined)
	}

	s.markClosing()
	s.wait()
}

func TestSessionRetriesAfterSendFailure(t *testing.T) {
	ff := &fakeFactory{}
	pool := newPool(testConfig(), ff.make, discardLogger())
	key := ChannelKey{Server: "srv", Port: 6667, Channel: "a"}
	s := newSession(key, pool, 10, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.run(ctx)

	s.Deliver("x")

	waitFor(t, "first connection dialed", func() bool { return len(ff.all()) == 1 })
	ff.all()[0].armSendError(errFakeSend)

	waitFor(t, "message eventually delivered on a fresh connection", func() bool {
		for _, ft := range ff.all() {
			if len(ft.sentTexts()) == 1 && ft.sentTexts()[0] == "x" {
				return true
			}
		}
		return false
	})

	s.markClosing()
	s.wait()
}

func TestSessionTouchUpdatesIdleSince(t *testing.T) {
	ff := &fakeFactory{}
	pool := newPool(testConfig(), ff.make, discardLogger())
	key := ChannelKey{Server: "srv", Channel: "a"}
	s := newSession(key, pool, 10, discardLogger())

	before := s.idleSince()
	time.Sleep(5 * time.Millisecond)
	s.touch()
	if !s.idleSince().After(before) {
		t.Fatal("expected idleSince to advance after touch")
	}
}
