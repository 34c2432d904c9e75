// irkerhook is the git post-commit companion to irkerd: it reads a
// commit's metadata and the repository's irker.yml configuration, renders
// a notification line, and ships it as a JSON request to the daemon's
// ingest socket. Formatting and VCS integration live here; webview URLs
// are shipped unshortened. irkerd itself is VCS-agnostic.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/runger/irkerd/internal/hookconfig"
)

const maxPrivmsgLen = 510

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts, commits, err := parseArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "irkerhook: %v\n", err)
		return 1
	}
	if opts.showVersion {
		fmt.Println("irkerhook: version 1.4")
		return 0
	}

	ctx := context.Background()

	cfg, err := loadConfig(ctx, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "irkerhook: %v\n", err)
		return 1
	}

	if len(commits) == 0 {
		commits = []string{"HEAD"}
	}

	for _, commit := range commits {
		if err := shipCommit(ctx, cfg, commit, opts.dryRun); err != nil {
			fmt.Fprintf(os.Stderr, "irkerhook: %v\n", err)
			return 1
		}
	}
	return 0
}

type hookOpts struct {
	dryRun      bool
	showVersion bool
	configPath  string
}

func parseArgs(args []string) (hookOpts, []string, error) {
	var opts hookOpts
	opts.configPath = "irker.yml"
	var commits []string

	for _, arg := range args {
		switch {
		case arg == "-n":
			opts.dryRun = true
		case arg == "-V":
			opts.showVersion = true
		case strings.HasPrefix(arg, "--config="):
			opts.configPath = strings.TrimPrefix(arg, "--config=")
		case strings.HasPrefix(arg, "--"):
			// Other overrides (--project=, --server=, ...) are accepted by
			// the original tool; irkerd's git integration only needs the
			// ones above, so anything else is ignored rather than rejected.
		default:
			commits = append(commits, arg)
		}
	}
	return opts, commits, nil
}

func loadConfig(ctx context.Context, opts hookOpts) (hookconfig.Config, error) {
	fromFile, err := hookconfig.Load(opts.configPath)
	if err != nil {
		return hookconfig.Config{}, err
	}

	cfg := hookconfig.Merge(hookconfig.DefaultConfig(), fromFile)
	cfg = hookconfig.Merge(cfg, gitExtractorConfig(ctx))

	project, err := resolveProject(ctx, cfg)
	if err != nil {
		return hookconfig.Config{}, err
	}
	cfg.Project = project
	if cfg.Repo == "" {
		cfg.Repo = strings.ToLower(cfg.Project)
	}
	if len(cfg.Channels) == 0 {
		cfg.Channels = []string{
			fmt.Sprintf("irc://chat.freenode.net/%s", cfg.Project),
			"irc://chat.freenode.net/#commits",
		}
	}
	return cfg, nil
}

func shipCommit(ctx context.Context, cfg hookconfig.Config, commit string, dryRun bool) error {
	fields, err := commitFields(ctx, cfg, commit)
	if err != nil {
		return err
	}
	fields.URL = resolveWebviewURL(cfg, commit)

	privmsg := hookconfig.Render(cfg.Template, cfg, fields)
	if len(privmsg) > maxPrivmsgLen {
		fields.Files = ""
		privmsg = hookconfig.Render(cfg.Template, cfg, fields)
	}

	channels := cfg.Channels
	if cfg.MaxChannels > 0 && len(channels) > cfg.MaxChannels {
		channels = channels[:cfg.MaxChannels]
	}

	payload, err := json.Marshal(struct {
		To      []string `json:"to"`
		Privmsg string   `json:"privmsg"`
	}{To: channels, Privmsg: privmsg})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	if dryRun {
		fmt.Println(string(payload))
		return nil
	}
	return sendToDaemon(cfg, payload)
}

// resolveWebviewURL expands the configured urlprefix template for commit
// and returns it unshortened: tinyifying requires an outbound HTTP call to
// a third-party shortener, which the daemon's non-goals explicitly leave
// to sibling tooling; irkerhook ships the full webview link instead.
func resolveWebviewURL(cfg hookconfig.Config, commit string) string {
	prefix := cfg.ResolveURLPrefix()
	if prefix == "" {
		return ""
	}
	host, _ := os.Hostname()
	expanded := strings.NewReplacer(
		"{host}", host,
		"{repo}", cfg.Repo,
	).Replace(prefix)
	return expanded + commit
}

func sendToDaemon(cfg hookconfig.Config, payload []byte) error {
	addr := net.JoinHostPort(cfg.Server, strconv.Itoa(hookconfig.IngestPort()))
	network := "udp"
	if cfg.UseTCP() {
		network = "tcp"
	}

	conn, err := net.DialTimeout(network, addr, 5*time.Second)
	if err != nil {
		return fmt.Errorf("connect to irkerd at %s: %w", addr, err)
	}
	defer conn.Close()

	if _, err := conn.Write(append(payload, '\n')); err != nil {
		return fmt.Errorf("send to irkerd: %w", err)
	}
	return nil
}
