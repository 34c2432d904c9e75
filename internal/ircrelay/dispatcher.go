package ircrelay

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
)

// rawRequest is the wire shape of an ingest request: to is either a
// string or a list of strings, so it is decoded twice (see parseTargets).
type rawRequest struct {
	To      json.RawMessage `json:"to"`
	Privmsg *string         `json:"privmsg"`
}

// errIllFormed marks a request that failed validation; the caller logs and
// drops it rather than propagating the error anywhere.
var errIllFormed = errors.New("ill-formed request")

// parseTargets decodes the "to" field, accepting either a bare string or a
// list of strings, and returns the channel URLs named.
func parseTargets(raw json.RawMessage) ([]string, error) {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if single == "" {
			return nil, errIllFormed
		}
		return []string{single}, nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, errIllFormed
	}
	if len(list) == 0 {
		return nil, errIllFormed
	}
	return list, nil
}

// dispatcher routes validated requests to Sessions, creating them on
// demand. It never blocks on IRC I/O: Session.Deliver only touches an
// in-memory queue.
type dispatcher struct {
	registry *registry
	pool     *Pool
	cfg      Config
	logger   *slog.Logger
	ctx      context.Context
}

func newDispatcher(ctx context.Context, reg *registry, pool *Pool, cfg Config, logger *slog.Logger) *dispatcher {
	return &dispatcher{registry: reg, pool: pool, cfg: cfg, logger: logger, ctx: ctx}
}

// handleLine decodes and dispatches a single ingest line. Parse and
// validation failures are logged and dropped; they never reach the
// listener's accept/read loop as an error.
func (d *dispatcher) handleLine(line []byte) {
	var req rawRequest
	if err := json.Unmarshal(line, &req); err != nil {
		d.logger.Warn("can't recognize JSON on input", "error", err)
		return
	}
	if req.Privmsg == nil {
		d.logger.Warn("ill-formed request", "reason", "missing privmsg")
		return
	}

	targets, err := parseTargets(req.To)
	if err != nil {
		d.logger.Warn("ill-formed request", "reason", "missing or invalid to")
		return
	}

	d.dispatch(targets, *req.Privmsg)
}

// dispatch resolves each channel URL to a Session and enqueues text on it.
// One bad URL does not block delivery to the others.
func (d *dispatcher) dispatch(targets []string, text string) {
	for _, raw := range targets {
		key, err := ParseChannelURL(raw)
		if err != nil {
			d.logger.Warn("ill-formed request", "reason", err.Error(), "to", raw)
			continue
		}
		d.sessionFor(key).Deliver(text)
	}
}

// sessionFor returns the Session for key, creating and starting it if this
// is the first message addressed to that channel.
func (d *dispatcher) sessionFor(key ChannelKey) *Session {
	return d.registry.getOrCreate(key, func() *Session {
		s := newSession(key, d.pool, d.cfg.QueueDepth, d.logger)
		go s.run(d.ctx)
		return s
	})
}
