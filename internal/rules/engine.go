package rules

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Engine applies deterministic transcript substitutions loaded from a rules
// file. Two line forms are supported: literal "from => to" replacements
// (case-insensitive) and sed-style "s/pattern/replacement/flags" rules.
// Rules iterate to a fixed point under a loop limit.
type Engine struct {
	rules     []rule
	loopLimit int
}

type rule struct {
	re          *regexp.Regexp
	replacement string
	firstOnly   bool
}

// NewEngine loads and compiles rules from path. A blank or missing path
// yields an identity engine.
func NewEngine(path string, loopLimit int) (*Engine, error) {
	if loopLimit <= 0 {
		loopLimit = 30
	}
	if strings.TrimSpace(path) == "" {
		return &Engine{loopLimit: loopLimit}, nil
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Engine{loopLimit: loopLimit}, nil
		}
		return nil, fmt.Errorf("failed to read rules file %q: %w", path, err)
	}

	engine := &Engine{loopLimit: loopLimit}
	for index, raw := range strings.Split(string(contents), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		r, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("rules file %q line %d: %w", path, index+1, err)
		}
		engine.rules = append(engine.rules, r)
	}
	return engine, nil
}

// Apply transforms text deterministically, iterating until no rule changes
// the text or the loop limit is reached.
func (e *Engine) Apply(text string) (string, error) {
	if len(e.rules) == 0 {
		return text, nil
	}

	result := text
	for i := 0; i < e.loopLimit; i++ {
		changed := false
		for _, r := range e.rules {
			next := r.apply(result)
			if next != result {
				result = next
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return result, nil
}

func (r rule) apply(input string) string {
	if !r.firstOnly {
		return r.re.ReplaceAllString(input, r.replacement)
	}

	loc := r.re.FindStringIndex(input)
	if loc == nil {
		return input
	}
	segment := r.re.ReplaceAllString(input[loc[0]:loc[1]], r.replacement)
	return input[:loc[0]] + segment + input[loc[1]:]
}

func parseLine(line string) (rule, error) {
	if isSedRule(line) {
		return parseSedRule(line)
	}
	if strings.Contains(line, "=>") {
		return parseLiteralRule(line)
	}
	return rule{}, errors.New("unsupported rule format")
}

func parseLiteralRule(line string) (rule, error) {
	parts := strings.SplitN(line, "=>", 2)
	from := strings.TrimSpace(parts[0])
	to := strings.TrimSpace(parts[1])
	if from == "" {
		return rule{}, errors.New("literal rule source cannot be empty")
	}

	re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(from))
	if err != nil {
		return rule{}, fmt.Errorf("invalid literal source: %w", err)
	}
	return rule{re: re, replacement: to}, nil
}

func isSedRule(line string) bool {
	return len(line) > 1 && line[0] == 's' && !isWordByte(line[1])
}

func parseSedRule(line string) (rule, error) {
	delim := line[1]
	pattern, pos, err := readDelimited(line, 2, delim)
	if err != nil {
		return rule{}, fmt.Errorf("invalid pattern: %w", err)
	}
	replacement, pos, err := readDelimited(line, pos, delim)
	if err != nil {
		return rule{}, fmt.Errorf("invalid replacement: %w", err)
	}

	global := false
	prefix := "i"
	for _, flag := range strings.TrimSpace(line[pos:]) {
		switch flag {
		case 'i':
			// case-insensitive is the default
		case 'g':
			global = true
		case 'm':
			prefix += "m"
		case 's':
			prefix += "s"
		case ' ':
		default:
			return rule{}, fmt.Errorf("unsupported flag %q", flag)
		}
	}

	re, err := regexp.Compile("(?" + prefix + ")" + pattern)
	if err != nil {
		return rule{}, fmt.Errorf("invalid regex: %w", err)
	}
	return rule{re: re, replacement: replacement, firstOnly: !global}, nil
}

// readDelimited scans up to the next unescaped delimiter, returning the
// segment and the position just past it.
func readDelimited(line string, start int, delim byte) (string, int, error) {
	if start >= len(line) {
		return "", 0, errors.New("unexpected end of expression")
	}

	var b strings.Builder
	escaped := false
	for i := start; i < len(line); i++ {
		ch := line[i]
		switch {
		case escaped:
			b.WriteByte(ch)
			escaped = false
		case ch == '\\':
			b.WriteByte(ch)
			escaped = true
		case ch == delim:
			return b.String(), i + 1, nil
		default:
			b.WriteByte(ch)
		}
	}
	return "", 0, errors.New("unterminated expression")
}

func isWordByte(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') ||
		(ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9') ||
		ch == ' ' || ch == '\t'
}
