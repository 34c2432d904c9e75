package ircrelay

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Session owns delivery for one channel: a bounded queue plus the
// goroutine that drains it onto a shared ServerConnection. One Session
// exists per ChannelKey for as long as it has traffic or queued work.
type Session struct {
	key    ChannelKey
	queue  *msgQueue
	pool   *Pool
	logger *slog.Logger

	mu         sync.Mutex
	conn       *ServerConnection
	lastActive time.Time
	closing    bool
	notifyWork chan struct{}
	done       chan struct{}
}

func newSession(key ChannelKey, pool *Pool, queueDepth int, logger *slog.Logger) *Session {
	s := &Session{
		key:        key,
		queue:      newMsgQueue(queueDepth, key, logger),
		pool:       pool,
		logger:     logger,
		lastActive: time.Now(),
		notifyWork: make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	return s
}

// Deliver enqueues text for this channel and wakes the drain loop. It never
// blocks on I/O: full queues drop their oldest entry instead.
func (s *Session) Deliver(text string) {
	s.queue.Enqueue(text)
	s.touch()
	select {
	case s.notifyWork <- struct{}{}:
	default:
	}
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// run is the Session's drain loop: one goroutine per Session, acquiring a
// ServerConnection lazily on first message and holding it until the
// Session is reaped or told to close. It only exits via markClosing. ctx
// bounds individual connect attempts (see ensureConn/Pool.Acquire) and
// cuts short the retry backoff, so once ctx is cancelled a failing drain
// pass ends with messages still queued.
func (s *Session) run(ctx context.Context) {
	defer close(s.done)

	for {
		<-s.notifyWork
		s.drain(ctx)

		if s.isClosing() {
			s.releaseConn()
			return
		}
	}
}

// drain sends every currently queued message, acquiring a connection on
// first use. A failure at any step drops the held connection and retries
// the same head-of-queue message on a freshly acquired one, with a short
// backoff between attempts, until it succeeds or the Session is told to
// stop.
func (s *Session) drain(ctx context.Context) {
	retries := 0
	for {
		text, ok := s.queue.Peek()
		if !ok {
			return
		}

		conn, err := s.ensureConn(ctx)
		if err != nil {
			s.logger.Error("session could not acquire connection", "channel", s.key.String(), "error", err)
			if !s.backoff(ctx, &retries) {
				return
			}
			continue
		}

		if err := conn.ensureJoined(s.key.CanonicalChannel()); err != nil {
			s.logger.Error("join failed, reconnecting", "channel", s.key.String(), "error", err)
			s.dropConn()
			if !s.backoff(ctx, &retries) {
				return
			}
			continue
		}

		if err := conn.send(s.key.CanonicalChannel(), text); err != nil {
			s.logger.Error("privmsg failed, retrying on a fresh connection", "channel", s.key.String(), "error", err)
			s.dropConn()
			if !s.backoff(ctx, &retries) {
				return
			}
			continue
		}

		retries = 0
		s.queue.Pop()
		s.touch()
	}
}

// backoff pauses briefly before a retry, growing with consecutive
// failures up to a ceiling. Returns false if ctx was cancelled or the
// Session was told to stop while waiting, in which case the caller must
// abandon this drain pass.
func (s *Session) backoff(ctx context.Context, retries *int) bool {
	*retries++
	delay := time.Duration(*retries) * 250 * time.Millisecond
	if delay > 5*time.Second {
		delay = 5 * time.Second
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return !s.isClosing()
	case <-ctx.Done():
		return false
	}
}

func (s *Session) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

func (s *Session) ensureConn(ctx context.Context) (*ServerConnection, error) {
	s.mu.Lock()
	if s.conn != nil {
		conn := s.conn
		s.mu.Unlock()
		return conn, nil
	}
	s.mu.Unlock()

	conn, err := s.pool.Acquire(ctx, s.key.serverKey())
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	return conn, nil
}

// dropConn unbinds the current connection and discards it from the pool
// (see Pool.discard); the next drain cycle acquires a fresh one.
func (s *Session) dropConn() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	if conn != nil {
		s.pool.discard(conn)
	}
}

func (s *Session) releaseConn() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	if conn != nil {
		s.pool.Release(conn)
	}
}

// markClosing tells the drain loop to exit after its current pass.
func (s *Session) markClosing() {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()
	select {
	case s.notifyWork <- struct{}{}:
	default:
	}
}

// wait blocks until the drain loop has exited.
func (s *Session) wait() {
	<-s.done
}
