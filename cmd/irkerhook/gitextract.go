package main

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/runger/irkerd/internal/hookconfig"
)

// gitConfigValue reads a single irker.* git config key, returning "" if it
// is unset rather than treating a missing key as an error: irkerhook runs
// unattended in a commit hook and most keys have sane built-in defaults.
func gitConfigValue(ctx context.Context, key string) string {
	out, err := exec.CommandContext(ctx, "git", "config", "--get", key).Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// gitExtractorConfig reads the irker.* git config keys that override
// hookconfig.DefaultConfig, mirroring the original GitExtractor's
// constructor.
func gitExtractorConfig(ctx context.Context) hookconfig.Config {
	var cfg hookconfig.Config
	cfg.Project = gitConfigValue(ctx, "irker.project")
	cfg.Repo = gitConfigValue(ctx, "irker.repo")
	cfg.Server = gitConfigValue(ctx, "irker.server")
	if ch := gitConfigValue(ctx, "irker.channels"); ch != "" {
		cfg.Channels = strings.Split(ch, ",")
	}
	if v := gitConfigValue(ctx, "irker.tcp"); v != "" {
		tcp := strings.EqualFold(v, "true")
		cfg.TCP = &tcp
	}
	cfg.Color = gitConfigValue(ctx, "irker.color")
	cfg.URLPrefix = gitConfigValue(ctx, "irker.urlprefix")
	cfg.RevFormat = gitConfigValue(ctx, "irker.revformat")
	return cfg
}

// resolveProject returns the project name, defaulting to the basename of
// the repository's toplevel directory when irker.project is unset.
func resolveProject(ctx context.Context, cfg hookconfig.Config) (string, error) {
	if cfg.Project != "" {
		return cfg.Project, nil
	}
	out, err := exec.CommandContext(ctx, "git", "rev-parse", "--show-toplevel").Output()
	if err != nil {
		return "", fmt.Errorf("not a git repository: %w", err)
	}
	top := strings.TrimSpace(string(out))
	parts := strings.Split(top, "/")
	if len(parts) == 0 || parts[len(parts)-1] == "" {
		return "", fmt.Errorf("could not derive project name from %q", top)
	}
	return parts[len(parts)-1], nil
}

// currentBranch returns the short name of the current branch, or "" if
// HEAD is detached.
func currentBranch(ctx context.Context) string {
	out, err := exec.CommandContext(ctx, "git", "symbolic-ref", "--short", "HEAD").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// commitFields builds the notification fields for a single commit, per
// the original GitExtractor.commit_factory: design choice, only the
// commit's summary line ships, not the full message body.
func commitFields(ctx context.Context, cfg hookconfig.Config, commit string) (hookconfig.CommitFields, error) {
	rev, err := resolveRev(ctx, cfg.RevFormat, commit)
	if err != nil {
		return hookconfig.CommitFields{}, err
	}

	filesOut, err := exec.CommandContext(ctx, "git", "diff-tree", "-r", "--name-only", commit).Output()
	if err != nil {
		return hookconfig.CommitFields{}, fmt.Errorf("diff-tree %s: %w", commit, err)
	}
	files := strings.Fields(dropFirstLine(string(filesOut)))

	metaOut, err := exec.CommandContext(ctx, "git", "log", "-1", "--pretty=format:%an <%ae>|%s", commit).Output()
	if err != nil {
		return hookconfig.CommitFields{}, fmt.Errorf("log %s: %w", commit, err)
	}
	author, logmsg, ok := strings.Cut(string(metaOut), "|")
	if !ok {
		return hookconfig.CommitFields{}, fmt.Errorf("unexpected git log output for %s", commit)
	}
	author = shortAuthor(author)

	return hookconfig.CommitFields{
		Project: cfg.Project,
		Repo:    cfg.Repo,
		Branch:  currentBranch(ctx),
		Rev:     rev,
		Files:   strings.Join(files, " "),
		Author:  author,
		LogMsg:  logmsg,
	}, nil
}

func resolveRev(ctx context.Context, format, commit string) (string, error) {
	switch strings.ToLower(format) {
	case "raw":
		return commit, nil
	case "short", "":
		if len(commit) > 12 {
			return commit[:12], nil
		}
		return commit, nil
	default: // "describe"
		out, err := exec.CommandContext(ctx, "git", "describe", commit).Output()
		if err != nil || len(strings.TrimSpace(string(out))) == 0 {
			if len(commit) > 12 {
				return commit[:12], nil
			}
			return commit, nil
		}
		return strings.TrimSpace(string(out)), nil
	}
}

// shortAuthor reduces "Name <user@host>" to just "user", discarding the
// domain part; the original implementation does this to keep spammers'
// address harvesters off the public IRC channel.
func shortAuthor(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.ReplaceAll(raw, "<", "")
	raw = strings.ReplaceAll(raw, ">", "")
	local, _, _ := strings.Cut(raw, "@")
	fields := strings.Fields(local)
	if len(fields) == 0 {
		return raw
	}
	return fields[len(fields)-1]
}

func dropFirstLine(s string) string {
	_, rest, ok := strings.Cut(strings.TrimRight(s, "\n"), "\n")
	if !ok {
		return ""
	}
	return rest
}
