package pipeline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gem-finder/internal/gems"
)

// RenderResult formats a result as the markdown cards shown to a user.
func RenderResult(r gems.CanonicalResult) string {
	if r.Status != gems.StatusSuccess {
		return r.Message
	}

	var b strings.Builder
	b.WriteString("Here are some hidden gems you might love:\n")
	for i, g := range r.Gems {
		fmt.Fprintf(&b, "\n### %d. %s (⭐ %.1f | 👤 %d reviews)\n", i+1, g.Name, g.Rating, g.ReviewCount)
		fmt.Fprintf(&b, "**Why it's a Hidden Gem:** %s\n", g.Analysis.WhySpecial)
		fmt.Fprintf(&b, "**Best time:** %s\n", g.Analysis.BestTime)
		fmt.Fprintf(&b, "**💡 Insider Tip:** %s\n", g.Analysis.InsiderTip)
		fmt.Fprintf(&b, "**📍 Location:** %s\n", g.Address)
		if g.MapURL != "" {
			fmt.Fprintf(&b, "**🗺️ View on Map:** %s\n", g.MapURL)
		}
	}
	b.WriteString("\n")
	b.WriteString(selectionPrompt(r.Gems))
	return b.String()
}

func selectionPrompt(list []gems.Gem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Which of these %d spots would you like to visit?", len(list))
	for i, g := range list {
		fmt.Fprintf(&b, "\n%d. %s", i+1, g.Name)
	}
	return b.String()
}

func renderAdvice(a gems.AdviceResult) string {
	parts := []string{a.Summary}
	if a.Outfit != "" {
		parts = append(parts, "What to wear: "+a.Outfit)
	}
	if a.BestTimeMatch != "" {
		parts = append(parts, "Best time: "+a.BestTimeMatch)
	}
	return strings.Join(parts, "\n\n")
}

var (
	ordinalDigit = regexp.MustCompile(`^(?:(?:number|option|no\.?|#)\s*)?(\d)(?:st|nd|rd|th)?[.)]?$`)
	ordinalWord  = regexp.MustCompile(`\b(first|second|third|last|1st|2nd|3rd)\b`)
)

var ordinalWords = map[string]int{
	"first": 0, "1st": 0, "second": 1, "2nd": 1, "third": 2, "3rd": 2,
}

// matchSelection resolves a user's pick against the offered gems, by name
// in either direction or by position.
func matchSelection(list []gems.Gem, selection string) (gems.Gem, bool) {
	sel := strings.ToLower(strings.TrimSpace(selection))
	if sel == "" || len(list) == 0 {
		return gems.Gem{}, false
	}

	for _, g := range list {
		name := strings.ToLower(g.Name)
		if name == "" {
			continue
		}
		if name == sel || strings.Contains(sel, name) || (len(sel) >= 4 && strings.Contains(name, sel)) {
			return g, true
		}
	}

	if m := ordinalDigit.FindStringSubmatch(sel); m != nil {
		n, _ := strconv.Atoi(m[1])
		if n >= 1 && n <= len(list) {
			return list[n-1], true
		}
		return gems.Gem{}, false
	}
	if m := ordinalWord.FindStringSubmatch(sel); m != nil {
		if m[1] == "last" {
			return list[len(list)-1], true
		}
		if i := ordinalWords[m[1]]; i < len(list) {
			return list[i], true
		}
	}
	return gems.Gem{}, false
}

var freshRequestPattern = regexp.MustCompile(`(?i)\b(?:find\s+(?:me\s+|us\s+)?(?:a|an|some|another|other|new|more|something)|another\s+(?:place|spot|gem|one|search)|new\s+search|hidden\s+gems?|somewhere\s+else|different\s+(?:place|spot|area|city))\b`)

// isFreshRequest reports whether a message asks for a new search rather
// than following up on the current one.
func isFreshRequest(msg string) bool {
	return freshRequestPattern.MatchString(msg)
}
