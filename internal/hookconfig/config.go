// Package hookconfig holds the explicit configuration record used by the
// irkerhook companion tool: the notification producer that sibling VCS
// post-commit hooks invoke. It replaces the attribute-injection pattern of
// the original implementation (fields stitched onto an extractor object at
// runtime) with a single struct carrying known types and defaults.
package hookconfig

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// defaultIrkerPort is the daemon's default ingest port (matches
// ircrelay.DefaultConfig().Port).
const defaultIrkerPort = 6659

// urlPrefixMap maps the magic urlprefix shorthands to their expansion
// templates, keyed the way the hook's "urlprefix" option names them.
var urlPrefixMap = map[string]string{
	"viewcvs": "http://{host}/viewcvs/{repo}?view=revision&revision=",
	"gitweb":  "http://{host}/cgi-bin/gitweb.cgi?p={repo};a=commit;h=",
	"cgit":    "http://{host}/cgi-bin/cgit.cgi/{repo}/commit/?id=",
}

// Config is the full set of recognized irkerhook options, loadable from a
// YAML file in the repository root (irker.yml) and overridable by irker.*
// git config keys. Any field left at its zero value falls back to
// DefaultConfig's value when Merge is called.
type Config struct {
	Server string `yaml:"server"`
	// TCP is a tri-state: nil means "unset, inherit the base config's
	// value"; Merge can only tell an explicit tcp: false override apart
	// from an absent one if false isn't also the override's zero value.
	TCP         *bool    `yaml:"tcp"`
	Tinyifier   string   `yaml:"tinyifier"`
	Template    string   `yaml:"template"`
	URLPrefix   string   `yaml:"urlprefix"`
	Channels    []string `yaml:"channels"`
	MaxChannels int      `yaml:"maxchannels"`
	Color       string   `yaml:"color"`
	RevFormat   string   `yaml:"revformat"`
	Project     string   `yaml:"project"`
	Repo        string   `yaml:"repo"`
	Host        string   `yaml:"host"`
}

// DefaultConfig returns the hook's built-in defaults, matching the
// original implementation's module-level constants.
func DefaultConfig() Config {
	return Config{
		Server:    "localhost",
		TCP:       boolPtr(true),
		Tinyifier: "http://tinyurl.com/api-create.php?url=",
		Template:  "{bold}{project}:{reset} {green}{author}{reset} {repo}:{yellow}{branch}{reset} * {bold}{rev}{reset} / {bold}{files}{reset}: {logmsg} {brown}{url}{reset}",
		URLPrefix: "gitweb",
		RevFormat: "describe",
	}
}

// Load reads a YAML config file at path, if it exists. A missing file is
// not an error: the caller proceeds with DefaultConfig merged with any
// git config overrides.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Merge layers override on top of base, keeping base's value for any
// field left at override's zero value.
func Merge(base, override Config) Config {
	out := base
	if override.Server != "" {
		out.Server = override.Server
	}
	if override.Tinyifier != "" {
		out.Tinyifier = override.Tinyifier
	}
	if override.Template != "" {
		out.Template = override.Template
	}
	if override.URLPrefix != "" {
		out.URLPrefix = override.URLPrefix
	}
	if len(override.Channels) > 0 {
		out.Channels = override.Channels
	}
	if override.MaxChannels != 0 {
		out.MaxChannels = override.MaxChannels
	}
	if override.Color != "" {
		out.Color = override.Color
	}
	if override.RevFormat != "" {
		out.RevFormat = override.RevFormat
	}
	if override.Project != "" {
		out.Project = override.Project
	}
	if override.Repo != "" {
		out.Repo = override.Repo
	}
	if override.Host != "" {
		out.Host = override.Host
	}
	if override.TCP != nil {
		out.TCP = override.TCP
	}
	return out
}

// UseTCP reports whether the hook should ship over TCP, treating an unset
// TCP as false (the daemon's own UDP default).
func (c Config) UseTCP() bool {
	return c.TCP != nil && *c.TCP
}

func boolPtr(b bool) *bool { return &b }

// ResolveURLPrefix expands a magic urlprefix shorthand (viewcvs, gitweb,
// cgit) into its template, or returns cfg.URLPrefix unchanged if it is
// already a literal template or "none".
func (c Config) ResolveURLPrefix() string {
	if strings.EqualFold(c.URLPrefix, "none") {
		return ""
	}
	if tmpl, ok := urlPrefixMap[strings.ToLower(c.URLPrefix)]; ok {
		return tmpl
	}
	return c.URLPrefix
}

// IngestPort is the daemon's fixed ingest port; irkerhook has no flag for
// it because the daemon's -p flag and the hook must agree out of band.
func IngestPort() int { return defaultIrkerPort }
