// irkerd is a persistent relay daemon: it accepts JSON requests on a
// local ingest socket and forwards each request's text as an IRC PRIVMSG
// to one or more channels.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/runger/irkerd/internal/ircrelay"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "irkerd: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		debug     int
		port      int
		nickHost  string
		useTCP    bool
	)

	cmd := &cobra.Command{
		Use:   "irkerd",
		Short: "relay JSON notifications to IRC channels",
		Long: `irkerd is a persistent relay daemon.

It listens on a local ingest socket (TCP or UDP) for small JSON requests
of the form {"to": "irc://host/#channel", "privmsg": "text"} and forwards
each one as an IRC PRIVMSG, multiplexing many channels and servers across
a bounded pool of shared IRC connections.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := ircrelay.DefaultConfig()
			cfg.Debug = debug
			cfg.Port = port
			cfg.Host = nickHost
			cfg.TCP = useTCP

			logger := newLogger(debug)
			return ircrelay.Run(cmd.Context(), cfg, logger)
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&debug, "debug", "d", 0, "debug verbosity (0-3)")
	flags.IntVarP(&port, "port", "p", ircrelay.DefaultConfig().Port, "ingest port")
	flags.StringVarP(&nickHost, "nick-suffix", "n", "", "nick host-suffix (default: derived from FQDN)")
	flags.BoolVarP(&useTCP, "tcp", "t", false, "use TCP ingest instead of UDP")

	return cmd
}

func newLogger(debug int) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case debug >= 3:
		level = slog.LevelDebug
	case debug >= 1:
		level = slog.LevelInfo
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}
