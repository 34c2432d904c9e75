package ircrelay

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// connState is the ServerConnection lifecycle state from spec §4.5: only
// ready permits JOIN/PRIVMSG.
type connState int

const (
	connConnecting connState = iota
	connReady
	connClosed
)

func (s connState) String() string {
	switch s {
	case connConnecting:
		return "connecting"
	case connReady:
		return "ready"
	case connClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ServerConnection is a single shared IRC connection, bound to up to
// MaxChannels Sessions at once.
type ServerConnection struct {
	key   ServerKey
	nick  string
	id    string // correlation id for log lines, stable across this connection's life
	trans transport

	mu        sync.Mutex
	state     connState
	joined    map[string]bool
	occupancy int
}

func (c *ServerConnection) setState(s connState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// ensureJoined issues JOIN for channel if this connection hasn't already
// joined it; it does not rejoin on subsequent messages.
func (c *ServerConnection) ensureJoined(channel string) error {
	c.mu.Lock()
	if c.joined[channel] {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	if err := c.trans.Join(channel); err != nil {
		return err
	}

	c.mu.Lock()
	c.joined[channel] = true
	c.mu.Unlock()
	return nil
}

// forgetJoins clears the joined set so the next send rejoins. Nothing in
// this package calls it: a reconnect gets a fresh ServerConnection with an
// empty joined set instead.
func (c *ServerConnection) forgetJoins() {
	c.mu.Lock()
	c.joined = make(map[string]bool)
	c.mu.Unlock()
}

func (c *ServerConnection) send(channel, text string) error {
	return c.trans.Privmsg(channel, text)
}

// Pool enforces CONNECT_MAX channel occupancies per IRC server connection
// and allocates globally unique, host-salted nicknames.
type Pool struct {
	cfg     Config
	factory transportFactory
	logger  *slog.Logger

	mu          sync.Mutex
	connections map[ServerKey]*ServerConnection
	keyLocks    map[ServerKey]*sync.Mutex
	nickCounter int
}

func newPool(cfg Config, factory transportFactory, logger *slog.Logger) *Pool {
	return &Pool{
		cfg:         cfg,
		factory:     factory,
		logger:      logger,
		connections: make(map[ServerKey]*ServerConnection),
		keyLocks:    make(map[ServerKey]*sync.Mutex),
	}
}

// keyLock returns the per-ServerKey mutex used to serialize Acquire's
// check-or-dial sequence, creating it on first use.
func (p *Pool) keyLock(key ServerKey) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.keyLocks[key]
	if !ok {
		l = &sync.Mutex{}
		p.keyLocks[key] = l
	}
	return l
}

// Acquire returns a ServerConnection for key, reusing the current one if it
// has spare occupancy, otherwise dialing a fresh connection with a new
// nick. The returned connection's occupancy has already been incremented
// on behalf of the caller. The whole check-or-dial sequence is serialized
// per ServerKey so two Sessions racing to open the same new connection
// (e.g. both channels of a single multi-target request) never both dial:
// the second one blocks on the lock and then finds the first one's
// connection already registered, with spare occupancy, and reuses it.
func (p *Pool) Acquire(ctx context.Context, key ServerKey) (*ServerConnection, error) {
	lock := p.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	p.mu.Lock()
	if conn, ok := p.connections[key]; ok {
		conn.mu.Lock()
		if conn.state != connClosed && conn.occupancy < p.cfg.MaxChannels {
			conn.occupancy++
			conn.mu.Unlock()
			p.mu.Unlock()
			return conn, nil
		}
		conn.mu.Unlock()
	}
	p.nickCounter++
	n := p.nickCounter
	p.mu.Unlock()

	nick := fmt.Sprintf("irker%03d-%s", n, p.cfg.Host)
	conn := &ServerConnection{
		key:    key,
		nick:   nick,
		id:     newCorrelationID(),
		joined: make(map[string]bool),
		state:  connConnecting,
	}
	conn.trans = p.factory(key, nick)

	connectCtx := ctx
	var cancel context.CancelFunc
	if p.cfg.RegisterTimeout > 0 {
		connectCtx, cancel = context.WithTimeout(ctx, p.cfg.RegisterTimeout)
		defer cancel()
	}
	if err := conn.trans.Connect(connectCtx); err != nil {
		return nil, fmt.Errorf("acquire %s: %w", key.String(), err)
	}
	conn.setState(connReady)
	conn.occupancy = 1

	p.mu.Lock()
	p.connections[key] = conn
	p.mu.Unlock()

	p.logger.Info("opened server connection",
		"server", key.String(), "nick", nick, "conn_id", conn.id)

	return conn, nil
}

// Release decrements a connection's occupancy. When occupancy reaches
// zero, it issues QUIT, closes the transport, and removes the connection
// from the pool.
func (p *Pool) Release(conn *ServerConnection) {
	conn.mu.Lock()
	conn.occupancy--
	remaining := conn.occupancy
	conn.mu.Unlock()

	if remaining > 0 {
		return
	}

	p.mu.Lock()
	if current, ok := p.connections[conn.key]; ok && current == conn {
		delete(p.connections, conn.key)
	}
	p.mu.Unlock()

	conn.setState(connClosed)
	conn.trans.Quit("irkerd: idle, closing")
	p.logger.Info("closed server connection", "server", conn.key.String(), "conn_id", conn.id)
}

// discard removes a dead connection from the pool without sending QUIT
// (the transport is already gone). Used on transport failure so the next
// Acquire dials fresh rather than handing back a dead connection.
func (p *Pool) discard(conn *ServerConnection) {
	p.mu.Lock()
	if current, ok := p.connections[conn.key]; ok && current == conn {
		delete(p.connections, conn.key)
	}
	p.mu.Unlock()
	conn.setState(connClosed)
}
