package ircrelay

import (
	"context"
	"testing"
	"time"
)

func TestDaemonReapsIdleSession(t *testing.T) {
	ff := &fakeFactory{}
	cfg := testConfig()
	cfg.SessionTTL = 20 * time.Millisecond
	cfg.Port = 0

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := New(ctx, cfg, discardLogger(), ff.make)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer d.Shutdown()

	d.dispatcher.dispatch([]string{"irc://srv/a"}, "hi")

	waitFor(t, "session registered", func() bool { return d.registry.count() == 1 })
	waitFor(t, "message delivered", func() bool {
		for _, ft := range ff.all() {
			if len(ft.sentTexts()) == 1 {
				return true
			}
		}
		return false
	})

	waitFor(t, "idle session reaped", func() bool { return d.registry.count() == 0 })

	waitFor(t, "connection released after reap", func() bool {
		for _, ft := range ff.all() {
			select {
			case <-ft.Done():
				return true
			default:
			}
		}
		return false
	})
}

func TestDaemonShutdownDrainsSessions(t *testing.T) {
	ff := &fakeFactory{}
	cfg := testConfig()
	cfg.Port = 0

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := New(ctx, cfg, discardLogger(), ff.make)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	d.dispatcher.dispatch([]string{"irc://srv/a"}, "hi")
	waitFor(t, "message delivered before shutdown", func() bool {
		for _, ft := range ff.all() {
			if len(ft.sentTexts()) == 1 {
				return true
			}
		}
		return false
	})

	d.Shutdown()
	d.Shutdown() // must be safe to call twice

	if d.registry.count() != 0 {
		t.Fatalf("expected no live sessions after shutdown, got %d", d.registry.count())
	}
}
