package ircrelay

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"
)

// Daemon is the assembled irkerd relay: registry, connection pool,
// dispatcher, and ingest endpoint, plus the TTL reaper and shutdown
// sequencing that ties them together.
type Daemon struct {
	cfg    Config
	logger *slog.Logger

	registry   *registry
	pool       *Pool
	dispatcher *dispatcher
	ingest     *ingest

	shutdownChan chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup
}

// New assembles a Daemon from cfg. factory, if nil, defaults to dialing
// real IRC servers via girc; tests pass a fake factory instead.
func New(ctx context.Context, cfg Config, logger *slog.Logger, factory transportFactory) *Daemon {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Host == "" {
		cfg.Host = hostSuffix()
	}
	if factory == nil {
		factory = func(key ServerKey, nick string) transport {
			return newGIRCTransport(key, nick, cfg.RegisterTimeout, logger)
		}
	}

	reg := newRegistry()
	pool := newPool(cfg, factory, logger)
	disp := newDispatcher(ctx, reg, pool, cfg, logger)
	ig := newIngest(cfg, disp, logger)

	return &Daemon{
		cfg:          cfg,
		logger:       logger,
		registry:     reg,
		pool:         pool,
		dispatcher:   disp,
		ingest:       ig,
		shutdownChan: make(chan struct{}),
	}
}

// hostSuffix derives the default nick suffix from the local FQDN with
// dots replaced by dashes, per the nick format in §4.2. When the hostname
// cannot be resolved to a canonical name, the bare hostname is used.
func hostSuffix() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "localhost"
	}
	if cname, err := net.LookupCNAME(h); err == nil && cname != "" {
		h = strings.TrimSuffix(cname, ".")
	}
	return dashifyHost(h)
}

func dashifyHost(h string) string {
	b := []byte(h)
	for i, c := range b {
		if c == '.' {
			b[i] = '-'
		}
	}
	return string(b)
}

// Start binds the ingest socket and starts the reap loop. It returns once
// the socket is bound, so a bind failure is a startup error, not a
// goroutine panic.
func (d *Daemon) Start(ctx context.Context) error {
	if err := d.ingest.start(ctx); err != nil {
		return err
	}

	d.wg.Add(1)
	go d.reapLoop(ctx)

	return nil
}

// Run starts the daemon and blocks until SIGINT/SIGTERM, then drains every
// Session's queue before returning.
func Run(ctx context.Context, cfg Config, logger *slog.Logger) error {
	d := New(ctx, cfg, logger, nil)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	if err := d.Start(ctx); err != nil {
		return fmt.Errorf("start irkerd: %w", err)
	}

	select {
	case sig := <-sigChan:
		d.logger.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
	}

	// Drain every Session before cancelling ctx: the Sessions still need
	// a live context to acquire/reconnect while flushing pending
	// messages. By the time cancel() runs, Shutdown has already stopped the
	// ingest listener and the reap loop.
	d.Shutdown()
	cancel()
	return nil
}

// Shutdown stops accepting new requests, waits for every live Session to
// drain its queue and QUIT its connection, then stops the reap loop. Safe
// to call more than once.
func (d *Daemon) Shutdown() {
	d.shutdownOnce.Do(func() {
		d.logger.Info("irkerd shutting down")
		d.ingest.stop()

		close(d.shutdownChan)

		var wg sync.WaitGroup
		for _, s := range d.registry.snapshot() {
			s.markClosing()
			wg.Add(1)
			go func(s *Session) {
				defer wg.Done()
				s.wait()
				d.registry.remove(s.key, s)
			}(s)
		}
		wg.Wait()

		d.wg.Wait()
		d.logger.Info("irkerd stopped")
	})
}

// reapLoop periodically terminates Sessions idle for longer than
// Config.SessionTTL.
func (d *Daemon) reapLoop(ctx context.Context) {
	defer d.wg.Done()

	interval := d.cfg.SessionTTL / 10
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.shutdownChan:
			return
		case <-ticker.C:
			d.reapIdle()
		}
	}
}

func (d *Daemon) reapIdle() {
	now := time.Now()
	for key, s := range d.sessionsByKey() {
		if now.Sub(s.idleSince()) <= d.cfg.SessionTTL {
			continue
		}
		d.logger.Info("reaping idle session", "channel", key.String(), "idle_for", now.Sub(s.idleSince()))
		s.markClosing()
		s.wait()
		d.registry.remove(key, s)
	}
}

func (d *Daemon) sessionsByKey() map[ChannelKey]*Session {
	out := make(map[ChannelKey]*Session)
	d.registry.mu.Lock()
	for k, s := range d.registry.sessions {
		out[k] = s
	}
	d.registry.mu.Unlock()
	return out
}
