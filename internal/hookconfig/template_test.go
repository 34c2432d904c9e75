package hookconfig

import (
	"strings"
	"testing"
)

func TestRenderSubstitutesKnownFields(t *testing.T) {
	cfg := DefaultConfig()
	fields := CommitFields{
		Project: "irkerd",
		Author:  "esr",
		Repo:    "irkerd",
		Branch:  "master",
		Rev:     "abc123",
		Files:   "a.go b.go",
		LogMsg:  "fix the thing",
		URL:     "http://example.org/c/abc123",
	}
	out := Render(cfg.Template, cfg, fields)

	for _, want := range []string{"irkerd", "esr", "master", "abc123", "a.go b.go", "fix the thing", "http://example.org/c/abc123"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected rendered output to contain %q, got %q", want, out)
		}
	}
}

func TestRenderNoColorByDefault(t *testing.T) {
	cfg := DefaultConfig()
	out := Render(cfg.Template, cfg, CommitFields{Project: "p"})
	if strings.ContainsRune(out, '\x02') || strings.ContainsRune(out, '\x1b') {
		t.Fatalf("expected no color control codes without Color set, got %q", out)
	}
}

func TestRenderMIRCColor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Color = "mIRC"
	out := Render(cfg.Template, cfg, CommitFields{Project: "p"})
	if !strings.ContainsRune(out, '\x02') {
		t.Fatal("expected mIRC bold control code in output")
	}
}

func TestRenderLiteralPlaceholdersAreNotEvaluated(t *testing.T) {
	cfg := DefaultConfig()
	fields := CommitFields{LogMsg: "{project} is not expanded recursively"}
	out := Render("{logmsg}", cfg, fields)
	if out != "{project} is not expanded recursively" {
		t.Fatalf("expected a single substitution pass, got %q", out)
	}
}
