package decoder

import (
	"fmt"
	"regexp"
	"strings"

	apperrors "gem-finder/internal/common/errors"
	"gem-finder/internal/gems"
)

var candidateListKeys = []string{"candidates", "places", "results"}

// DecodeCandidates extracts discovery candidates from stage output. It
// accepts an object holding a candidates/places/results array or a bare
// array, fenced or embedded in prose. An empty list is not an error.
func DecodeCandidates(raw string) ([]gems.Candidate, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, apperrors.NewMalformedOutputError("discovery", raw)
	}

	var sources []string
	sources = append(sources, fencedBlocks(raw)...)
	// Nested values are covered by the parse of their outermost span.
	for _, sp := range outermostSpans(valueSpans(raw)) {
		sources = append(sources, sp.text(raw))
	}

	for _, src := range sources {
		v, ok := parseValue(src)
		if !ok {
			continue
		}
		if items, ok := candidateItems(v); ok {
			return candidatesFrom(items), nil
		}
	}
	return nil, apperrors.NewMalformedOutputError("discovery", raw)
}

func candidateItems(v interface{}) ([]interface{}, bool) {
	switch t := v.(type) {
	case []interface{}:
		if len(t) == 0 {
			return t, true
		}
		for _, item := range t {
			if _, ok := item.(map[string]interface{}); ok {
				return t, true
			}
		}
	case map[string]interface{}:
		for _, key := range candidateListKeys {
			if items, ok := t[key].([]interface{}); ok {
				return items, true
			}
		}
	}
	return nil, false
}

func candidatesFrom(items []interface{}) []gems.Candidate {
	out := make([]gems.Candidate, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		c := gems.Candidate{
			ID:          firstString(m, "id", "place_id", "placeId"),
			Name:        firstString(m, "name", "placeName", "title"),
			Rating:      numberOr(m["rating"], 0),
			ReviewCount: reviewCountOf(m),
			Location:    coordinatesOf(m),
			Address:     firstString(m, "address", "formatted_address", "formattedAddress", "vicinity"),
		}
		if c.Name == "" {
			continue
		}
		if c.ID == "" {
			c.ID = fmt.Sprintf("candidate-%d", i+1)
		}
		c.Types = toStrings(m["types"])
		if t := stringOf(m["type"]); t != "" && len(c.Types) == 0 {
			c.Types = []string{t}
		}
		out = append(out, c)
	}
	return out
}

var (
	outfitLine   = regexp.MustCompile(`(?im)^[\W_]*(?:outfit|what to wear|clothing)[^:\n]*:\**\s*(.+)$`)
	bestTimeLine = regexp.MustCompile(`(?im)^[\W_]*best time[^:\n]*:\**\s*(.+)$`)
)

// DecodeAdvice extracts advice from the advice stage. Structured output is
// preferred; prose becomes the summary with outfit and timing lines lifted
// out when present.
func DecodeAdvice(raw string) gems.AdviceResult {
	isAdvice := func(m map[string]interface{}) bool {
		_, s := m["summary"]
		_, a := m["advice"]
		_, o := m["outfit"]
		return s || a || o
	}
	if obj, ok := firstObject(raw, isAdvice); ok {
		return gems.AdviceResult{
			Summary:       firstText(obj, "summary", "advice", "overview"),
			Outfit:        firstText(obj, "outfit", "whatToWear", "what_to_wear", "clothing"),
			BestTimeMatch: firstText(obj, "bestTimeMatch", "best_time_match", "bestTime", "best_time"),
		}
	}

	text := stripFences(raw)
	advice := gems.AdviceResult{Summary: text}
	if m := outfitLine.FindStringSubmatch(text); m != nil {
		advice.Outfit = cleanInline(m[1])
	}
	if m := bestTimeLine.FindStringSubmatch(text); m != nil {
		advice.BestTimeMatch = cleanInline(m[1])
	}
	return advice
}

// ExtractText unwraps conversational output that arrives as JSON
// ({"response": ...}, {"summary": ...}) and returns prose unchanged.
func ExtractText(raw string) string {
	hasText := func(m map[string]interface{}) bool {
		return firstText(m, "response", "summary", "message", "text") != ""
	}
	trimmed := strings.TrimSpace(raw)
	if obj, ok := firstObject(trimmed, hasText); ok && looksLikeJSONReply(trimmed) {
		return firstText(obj, "response", "summary", "message", "text")
	}
	return trimmed
}

// looksLikeJSONReply reports whether the reply is only a JSON document,
// so prose that merely quotes JSON is kept intact.
func looksLikeJSONReply(s string) bool {
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "```")
}

func stripFences(raw string) string {
	if blocks := fencedBlocks(raw); len(blocks) > 0 && strings.HasPrefix(strings.TrimSpace(raw), "```") {
		return blocks[0]
	}
	return strings.TrimSpace(raw)
}

// firstText reads the first present key as text; lists are joined.
func firstText(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case []interface{}:
			if list := toStrings(v); len(list) > 0 {
				return strings.Join(list, ", ")
			}
		}
	}
	return ""
}
