package ircrelay

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// defaultIRCPort is used when a channel URL omits an explicit port.
const defaultIRCPort = 6667

// ServerKey identifies a single IRC server connection slot in the pool.
type ServerKey struct {
	Server string
	Port   int
}

func (k ServerKey) String() string {
	return fmt.Sprintf("%s:%d", k.Server, k.Port)
}

// ChannelKey is the normalized form of a channel URL: the destination a
// Session owns. Channel is stored without its leading '#' — see
// CanonicalChannel for the wire-facing form.
type ChannelKey struct {
	Server  string
	Port    int
	Channel string
}

func (k ChannelKey) serverKey() ServerKey {
	return ServerKey{Server: k.Server, Port: k.Port}
}

// CanonicalChannel returns the '#'-prefixed form sent to IRC.
func (k ChannelKey) CanonicalChannel() string {
	return "#" + k.Channel
}

func (k ChannelKey) String() string {
	return fmt.Sprintf("%s:%d/#%s", k.Server, k.Port, k.Channel)
}

// ParseChannelURL parses a channel URL of the form irc://HOST[:PORT]/CHANNEL
// into a ChannelKey. The leading '#' on CHANNEL is accepted but not
// required; it is stripped either way since the key stores the bare name.
func ParseChannelURL(raw string) (ChannelKey, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return ChannelKey{}, fmt.Errorf("invalid channel URL %q: %w", raw, err)
	}
	if u.Scheme != "irc" && u.Scheme != "ircs" {
		return ChannelKey{}, fmt.Errorf("invalid channel URL %q: scheme must be irc or ircs", raw)
	}
	if u.Host == "" {
		return ChannelKey{}, fmt.Errorf("invalid channel URL %q: missing host", raw)
	}

	host := u.Hostname()
	port := defaultIRCPort
	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return ChannelKey{}, fmt.Errorf("invalid channel URL %q: bad port: %w", raw, err)
		}
		port = n
	}

	channel := strings.TrimPrefix(u.Path, "/")
	if channel == "" && u.Fragment != "" {
		// net/url reads "irc://host/#chan" as path "/" plus fragment "chan".
		channel = u.Fragment
	}
	channel = strings.TrimPrefix(channel, "#")
	if channel == "" {
		return ChannelKey{}, fmt.Errorf("invalid channel URL %q: missing channel", raw)
	}

	return ChannelKey{Server: host, Port: port, Channel: channel}, nil
}
