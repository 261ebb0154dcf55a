package rules

import (
	"os"
	"path/filepath"
	"testing"
)

func writeRules(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "substitutions.rules")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("failed to write rules file: %v", err)
	}
	return path
}

func apply(t *testing.T, contents, input string) string {
	t.Helper()
	engine, err := NewEngine(writeRules(t, contents), 0)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	out, err := engine.Apply(input)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	return out
}

func TestIdentityEngine(t *testing.T) {
	t.Parallel()

	for _, path := range []string{"", "   ", filepath.Join(t.TempDir(), "absent.rules")} {
		engine, err := NewEngine(path, 0)
		if err != nil {
			t.Fatalf("NewEngine(%q) failed: %v", path, err)
		}
		out, err := engine.Apply("unchanged text")
		if err != nil || out != "unchanged text" {
			t.Fatalf("expected identity, got %q / %v", out, err)
		}
	}
}

func TestLiteralRules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		rules string
		in    string
		want  string
	}{
		{"simple replace", "teh => the", "teh cat", "the cat"},
		{"case insensitive", "github => GitHub", "on Github and GITHUB", "on GitHub and GitHub"},
		{"all occurrences", "a => b", "a a a", "b b b"},
		{"regex metachars are literal", "2+2 => four", "2+2 is easy", "four is easy"},
		{"empty target deletes", "um => ", "um hello um", " hello "},
		{"comments and blanks skipped", "# note\n\nfoo => bar\n", "foo", "bar"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := apply(t, tc.rules, tc.in); got != tc.want {
				t.Fatalf("Apply(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestSedRules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		rules string
		in    string
		want  string
	}{
		{"first match only by default", `s/cat/dog/`, "cat cat cat", "dog cat cat"},
		{"global flag", `s/cat/dog/g`, "cat cat cat", "dog dog dog"},
		{"case insensitive by default", `s/HELLO/hi/`, "Hello there", "hi there"},
		{"alternate delimiter", `s|/tmp|/var|`, "in /tmp today", "in /var today"},
		{"escaped delimiter", `s/a\/b/c/`, "a/b", "c"},
		{"group substitution", `s/(\d+) dollars/$1 USD/g`, "5 dollars and 10 dollars", "5 USD and 10 USD"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := apply(t, tc.rules, tc.in); got != tc.want {
				t.Fatalf("Apply(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestRulesIterateToFixedPoint(t *testing.T) {
	t.Parallel()

	// The second rule only matches text produced by the first.
	out := apply(t, "aa => b\nbb => c\n", "aaaa")
	if out != "c" {
		t.Fatalf("expected cascaded result %q, got %q", "c", out)
	}
}

func TestLoopLimitStopsOscillation(t *testing.T) {
	t.Parallel()

	engine, err := NewEngine(writeRules(t, "a => b\nb => a\n"), 4)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	if _, err := engine.Apply("a"); err != nil {
		t.Fatalf("oscillating rules must terminate, got %v", err)
	}
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		rules string
	}{
		{"unsupported line", "not a rule"},
		{"empty literal source", " => to"},
		{"unterminated sed", `s/foo/bar`},
		{"unknown sed flag", `s/foo/bar/x`},
		{"invalid regex", `s/(unclosed/x/`},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := NewEngine(writeRules(t, tc.rules), 0); err == nil {
				t.Fatalf("expected parse error for %q", tc.rules)
			}
		})
	}
}
