package decoder

import (
	"regexp"
	"strconv"
	"strings"

	apperrors "gem-finder/internal/common/errors"
	"gem-finder/internal/gems"
)

const markdownDefaultRating = 4.0

var (
	mdHeader     = regexp.MustCompile(`(?m)^[ \t]*#{2,4}[ \t]*\d+[.)][ \t]*([^\n(]+)`)
	mdRating     = regexp.MustCompile(`(?:⭐\x{FE0F}?|\*\*Rating:\*\*)\s*([\d.]+)`)
	mdReviews    = regexp.MustCompile(`(?i)(?:👤\s*)?([\d,]+)\s*reviews?\b`)
	mdAddress    = regexp.MustCompile(`(?:📍\s*\**\s*Location:|\*\*Address:)\**\s*([^\n]+)`)
	mdWhy        = regexp.MustCompile(`(?i)\*\*Why it['’]s (?:a )?(?:Hidden Gem|special):\*\*`)
	mdTip        = regexp.MustCompile(`(?i)💡\s*\**\s*Insider Tip:\**`)
	mdBestTime   = regexp.MustCompile(`(?i)\**(?:best time(?: to visit)?|best visit|ideal time)\**:\**\s*([^\n]+)`)
	mdMapURL     = regexp.MustCompile(`https?://[^\s)\]]*(?:maps|goo\.gl)[^\s)\]]*`)
	noResultsRxp = regexp.MustCompile(`(?i)(couldn['’]?t|could not|can['’]?t|cannot|unable to)\s+(find|get you|locate)|no (hidden )?gems (were )?found|no (spots|places|results) (were )?found|nothing match(es|ed|ing)`)
)

// decodeMarkdown recovers gems from a "### N. Name" style reply. Each
// header opens a section; fields are read only from that section.
func decodeMarkdown(raw string) (gems.CanonicalResult, bool) {
	headers := mdHeader.FindAllStringSubmatchIndex(raw, -1)
	if len(headers) == 0 {
		return gems.CanonicalResult{}, false
	}

	result := gems.CanonicalResult{Status: gems.StatusSuccess}
	for i, h := range headers {
		end := len(raw)
		if i+1 < len(headers) {
			end = headers[i+1][0]
		}
		name := cleanInline(raw[h[2]:h[3]])
		if name == "" {
			continue
		}
		result.Gems = append(result.Gems, gemFromSection(name, raw[h[1]:end]))
	}

	if len(result.Gems) == 0 {
		return gems.CanonicalResult{}, false
	}
	result.Normalize()
	return result, true
}

func gemFromSection(name, section string) gems.Gem {
	g := gems.Gem{Name: name, Rating: markdownDefaultRating}

	if m := mdRating.FindStringSubmatch(section); m != nil {
		if f, err := strconv.ParseFloat(strings.TrimRight(m[1], "."), 64); err == nil {
			g.Rating = f
		}
	}
	if m := mdReviews.FindStringSubmatch(section); m != nil {
		if n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", "")); err == nil {
			g.ReviewCount = n
		}
	}
	if m := mdAddress.FindStringSubmatch(section); m != nil {
		g.Address = cleanInline(m[1])
	}
	if m := mdMapURL.FindString(section); m != "" {
		g.MapURL = m
	}
	if m := mdBestTime.FindStringSubmatch(section); m != nil {
		g.Analysis.BestTime = cleanInline(m[1])
	}
	if loc := mdWhy.FindStringIndex(section); loc != nil {
		g.Analysis.WhySpecial = paragraphAfter(section[loc[1]:])
	}
	if loc := mdTip.FindStringIndex(section); loc != nil {
		g.Analysis.InsiderTip = paragraphAfter(section[loc[1]:])
	}
	return g
}

// paragraphAfter collects text up to a blank line or the next marker line.
func paragraphAfter(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if i > 0 && (trimmed == "" || startsWithMarker(trimmed)) {
			break
		}
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return cleanInline(strings.Join(out, " "))
}

func startsWithMarker(line string) bool {
	for _, p := range []string{"**", "📍", "🗺", "💡", "#", "⭐", "👤", "---"} {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

func cleanInline(s string) string {
	s = strings.ReplaceAll(s, "**", "")
	return strings.Trim(strings.TrimSpace(s), " -–—:")
}

// decodeNoResults turns an apologetic "couldn't find any spots" reply into
// ZERO_GEMS carrying the prose.
func decodeNoResults(raw string) (gems.CanonicalResult, bool) {
	text := strings.TrimSpace(raw)
	if text == "" || !noResultsRxp.MatchString(text) {
		return gems.CanonicalResult{}, false
	}
	return gems.NewZeroGems(apperrors.Truncate(text, 500)), true
}
