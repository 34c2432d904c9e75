package ircrelay

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// fakeTransport is an in-memory transport double: it records every JOIN
// and PRIVMSG it's asked to send instead of talking to a real socket, so
// pool and session tests never need a live IRC server.
type fakeTransport struct {
	mu   sync.Mutex
	key  ServerKey
	nick string

	connectErr   error
	connectDelay time.Duration // widens the dial window in race tests
	sendErr      error         // if set, the next Privmsg fails once and clears it

	joined   []string
	messages []fakeMessage
	quit     string
	quitCh   chan struct{}
}

type fakeMessage struct {
	channel string
	text    string
}

func newFakeTransport(key ServerKey, nick string) *fakeTransport {
	return &fakeTransport{key: key, nick: nick, quitCh: make(chan struct{})}
}

func (f *fakeTransport) Connect(ctx context.Context) error {
	if f.connectDelay > 0 {
		time.Sleep(f.connectDelay)
	}
	return f.connectErr
}

func (f *fakeTransport) Join(channel string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joined = append(f.joined, channel)
	return nil
}

func (f *fakeTransport) Privmsg(channel, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		err := f.sendErr
		f.sendErr = nil
		return err
	}
	f.messages = append(f.messages, fakeMessage{channel: channel, text: text})
	return nil
}

func (f *fakeTransport) Quit(reason string) {
	f.mu.Lock()
	f.quit = reason
	f.mu.Unlock()
	close(f.quitCh)
}

func (f *fakeTransport) Done() <-chan struct{} {
	return f.quitCh
}

func (f *fakeTransport) sentTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.messages))
	for i, m := range f.messages {
		out[i] = m.text
	}
	return out
}

func (f *fakeTransport) armSendError(err error) {
	f.mu.Lock()
	f.sendErr = err
	f.mu.Unlock()
}

// fakeFactory builds a transportFactory backed by fakeTransport, keeping
// every instance it creates, in creation order, so tests can inspect them.
type fakeFactory struct {
	mu           sync.Mutex
	instances    []*fakeTransport
	connectDelay time.Duration // applied to every transport this factory creates
}

func (f *fakeFactory) make(key ServerKey, nick string) transport {
	ft := newFakeTransport(key, nick)
	f.mu.Lock()
	ft.connectDelay = f.connectDelay
	f.instances = append(f.instances, ft)
	f.mu.Unlock()
	return ft
}

func (f *fakeFactory) all() []*fakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*fakeTransport, len(f.instances))
	copy(out, f.instances)
	return out
}

var errFakeSend = fmt.Errorf("fake transport: send failed")
