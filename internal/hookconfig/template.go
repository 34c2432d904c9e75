package hookconfig

import "strings"

// ircColors are the mIRC control codes used when Config.Color is "mIRC".
// ANSI is the other style the original implementation supported; both
// degrade to empty strings when color is off.
var ircColors = map[string]string{
	"bold":   "\x02",
	"green":  "\x033",
	"blue":   "\x032",
	"yellow": "\x037",
	"brown":  "\x035",
	"reset":  "\x0F",
}

var ansiColors = map[string]string{
	"bold":   "\x1b[1m",
	"green":  "\x1b[1;32m",
	"blue":   "\x1b[1;34m",
	"yellow": "\x1b[1;33m",
	"brown":  "\x1b[0;33m",
	"reset":  "\x1b[0m",
}

// CommitFields carries the per-commit values a hook extractor fills in
// before rendering a notification.
type CommitFields struct {
	Project string
	Author  string
	Repo    string
	Branch  string
	Rev     string
	Files   string
	LogMsg  string
	URL     string
}

// Render expands cfg.Template against fields using named placeholders of
// the form {name}. This is a fixed substitution table, not text/template
// and not an expression evaluator: the original implementation's only
// templating need is "drop these known strings into known slots", and
// strings.NewReplacer does that without giving the hook's input (commit
// messages, author names) any way to execute as code.
func Render(tmpl string, cfg Config, fields CommitFields) string {
	colors := colorsFor(cfg.Color)
	pairs := []string{
		"{project}", fields.Project,
		"{author}", fields.Author,
		"{repo}", fields.Repo,
		"{branch}", fields.Branch,
		"{rev}", fields.Rev,
		"{files}", fields.Files,
		"{logmsg}", fields.LogMsg,
		"{url}", fields.URL,
		"{bold}", colors["bold"],
		"{green}", colors["green"],
		"{blue}", colors["blue"],
		"{yellow}", colors["yellow"],
		"{brown}", colors["brown"],
		"{reset}", colors["reset"],
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

func colorsFor(style string) map[string]string {
	switch strings.ToLower(style) {
	case "mirc":
		return ircColors
	case "ansi":
		return ansiColors
	default:
		empty := make(map[string]string, len(ircColors))
		for k := range ircColors {
			empty[k] = ""
		}
		return empty
	}
}
