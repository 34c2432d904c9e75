package ircrelay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lrstanley/girc"
)

// transport is the minimum IRC protocol contract a ServerConnection needs:
// connect/register, join a channel once, send a PRIVMSG, and quit. The pool
// and session only ever talk to this interface, never to girc directly,
// which is what lets tests substitute a fake transport instead of dialing
// a real network (see transport_test.go).
type transport interface {
	// Connect dials and registers with the server. It blocks until the
	// server has welcomed the client (numeric 001) or ctx expires.
	Connect(ctx context.Context) error
	// Join enters a channel. Safe to call only after Connect succeeds.
	Join(channel string) error
	// Privmsg sends text to a channel.
	Privmsg(channel, text string) error
	// Quit sends a QUIT and closes the underlying connection.
	Quit(reason string)
	// Done is closed when the transport has disconnected, whether by
	// request or because the remote end dropped it.
	Done() <-chan struct{}
}

// transportFactory builds a transport for a given server/nick pair. The
// pool holds one of these so tests can inject a fake implementation.
type transportFactory func(key ServerKey, nick string) transport

// gircTransport adapts github.com/lrstanley/girc — a real, conformant
// low-level IRC client library — to the transport interface. girc answers
// PING with PONG internally, so the adaptor doesn't need to.
type gircTransport struct {
	client *girc.Client
	done   chan struct{}
	logger *slog.Logger
}

func newGIRCTransport(key ServerKey, nick string, registerTimeout time.Duration, logger *slog.Logger) transport {
	t := &gircTransport{
		done:   make(chan struct{}),
		logger: logger,
	}

	t.client = girc.New(girc.Config{
		Server:     key.Server,
		Port:       key.Port,
		Nick:       nick,
		User:       "irkerd",
		Name:       "irkerd relay",
		PingDelay:  registerTimeout,
		RecoverFunc: func(c *girc.Client, e *girc.HandlerError) {
			logger.Error("girc handler panic recovered", "server", key.String(), "error", e.Error())
		},
	})

	t.client.Handlers.AddBg(girc.ALL_EVENTS, func(c *girc.Client, e girc.Event) {
		if e.Command == girc.ERROR {
			t.closeDone()
		}
	})

	return t
}

func (t *gircTransport) closeDone() {
	select {
	case <-t.done:
	default:
		close(t.done)
	}
}

func (t *gircTransport) Connect(ctx context.Context) error {
	welcomed := make(chan struct{})
	cuid := t.client.Handlers.AddBg(girc.RPL_WELCOME, func(c *girc.Client, e girc.Event) {
		select {
		case <-welcomed:
		default:
			close(welcomed)
		}
	})
	defer t.client.Handlers.Remove(cuid)

	connErr := make(chan error, 1)
	go func() {
		connErr <- t.client.Connect()
		t.closeDone()
	}()

	select {
	case <-welcomed:
		return nil
	case err := <-connErr:
		if err == nil {
			err = fmt.Errorf("connection closed before registration completed")
		}
		return fmt.Errorf("connect to %s: %w", t.client.Server(), err)
	case <-ctx.Done():
		t.client.Close()
		return ctx.Err()
	}
}

func (t *gircTransport) Join(channel string) error {
	return t.client.Cmd.Join(channel)
}

func (t *gircTransport) Privmsg(channel, text string) error {
	return t.client.Cmd.Message(channel, text)
}

func (t *gircTransport) Quit(reason string) {
	t.client.Quit(reason)
	t.closeDone()
}

func (t *gircTransport) Done() <-chan struct{} {
	return t.done
}
