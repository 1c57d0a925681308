package decoder

import (
	"regexp"
	"sort"
	"strings"

	"gem-finder/internal/common/validation"
	"gem-finder/internal/gems"

	"github.com/goccy/go-json"
)

var (
	fencePattern     = regexp.MustCompile("```(?:[\\w-]+)?[ \\t]*\\n?([\\s\\S]*?)```")
	keyedOpenPattern = regexp.MustCompile(`\{\s*"(?:gems|status)"\s*:`)
)

// fencedBlocks returns the contents of every fenced code block in order.
func fencedBlocks(s string) []string {
	matches := fencePattern.FindAllStringSubmatch(s, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if body := strings.TrimSpace(m[1]); body != "" {
			out = append(out, body)
		}
	}
	return out
}

// maxParseAttempts bounds how many embedded candidates a strategy will
// hand to the JSON parser.
const maxParseAttempts = 64

// span is a balanced {...} or [...] value at s[start:end].
type span struct {
	start, end int
}

func (sp span) text(s string) string { return s[sp.start:sp.end] }

// valueSpans finds every balanced object or array in s in a single pass,
// ordered by start. Brackets inside string literals are ignored; a raw
// newline ends any open string since JSON strings cannot contain one.
// Unclosed openers yield nothing.
func valueSpans(s string) []span {
	var (
		open     []int
		spans    []span
		inString bool
		escaped  bool
	)
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch == '\n' {
			inString, escaped = false, false
			continue
		}
		if escaped {
			escaped = false
			continue
		}
		if inString {
			switch ch {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{', '[':
			open = append(open, i)
		case '}', ']':
			if len(open) == 0 {
				continue
			}
			start := open[len(open)-1]
			open = open[:len(open)-1]
			spans = append(spans, span{start: start, end: i + 1})
		}
	}
	sort.Slice(spans, func(a, b int) bool { return spans[a].start < spans[b].start })
	return spans
}

// objectCandidates returns the spans in s that could hold a non-empty
// object: they open with '{' and a quoted key.
func objectCandidates(s string) []span {
	var out []span
	for _, sp := range valueSpans(s) {
		if s[sp.start] != '{' {
			continue
		}
		body := strings.TrimLeft(s[sp.start+1:sp.end], " \t\r\n")
		if strings.HasPrefix(body, `"`) {
			out = append(out, sp)
		}
	}
	return out
}

// outermostSpans drops spans nested inside an earlier one.
func outermostSpans(spans []span) []span {
	var out []span
	last := -1
	for _, sp := range spans {
		if sp.start < last {
			continue
		}
		out = append(out, sp)
		last = sp.end
	}
	return out
}

// parseValue strictly parses s as a single JSON value.
func parseValue(s string) (interface{}, bool) {
	var v interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &v); err != nil {
		return nil, false
	}
	return v, v != nil
}

func parseObject(s string) (map[string]interface{}, bool) {
	v, ok := parseValue(s)
	if !ok {
		return nil, false
	}
	obj, ok := v.(map[string]interface{})
	return obj, ok
}

// parseCanonical accepts s only if it is an object that validates against
// the canonical record schema.
func parseCanonical(s string) (gems.CanonicalResult, bool) {
	obj, ok := parseObject(s)
	if !ok {
		return gems.CanonicalResult{}, false
	}
	if !validation.CanonicalResult().Validate(obj).Valid {
		return gems.CanonicalResult{}, false
	}
	return canonicalFromMap(obj), true
}

// firstObject finds the first balanced object in s (fenced blocks first)
// for which accept returns true.
func firstObject(s string, accept func(map[string]interface{}) bool) (map[string]interface{}, bool) {
	for _, block := range fencedBlocks(s) {
		if obj, ok := parseObject(block); ok && accept(obj) {
			return obj, true
		}
	}
	for i, sp := range objectCandidates(s) {
		if i == maxParseAttempts {
			break
		}
		if obj, ok := parseObject(sp.text(s)); ok && accept(obj) {
			return obj, true
		}
	}
	return nil, false
}
