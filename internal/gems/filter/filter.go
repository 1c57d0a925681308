package filter

import (
	"errors"
	"sort"
	"strings"
	"time"
	"unicode"

	"gem-finder/internal/common/logger"
	"gem-finder/internal/common/metrics"
	"gem-finder/internal/gems"
)

// ErrZeroGems signals that no candidate qualifies. Callers must report it
// as a ZERO_GEMS result and never fabricate gems.
var ErrZeroGems = errors.New("ZERO_GEMS")

const (
	scoreHigh     = 2
	scoreMedium   = 1
	scoreLow      = 0
	scoreFallback = -1
)

type Engine struct {
	config       *Config
	logger       logger.Logger
	nameKeywords []string
	deniedTypes  map[string]struct{}
}

func NewEngine(config *Config, log logger.Logger) *Engine {
	if config == nil {
		config = DefaultConfig()
	}
	e := &Engine{
		config:      config,
		logger:      log.WithFields(map[string]interface{}{"component": "filter"}),
		deniedTypes: make(map[string]struct{}, len(config.DeniedTypes)),
	}
	for _, kw := range config.NameKeywords {
		e.nameKeywords = append(e.nameKeywords, " "+normalizeName(kw)+" ")
	}
	for _, t := range config.DeniedTypes {
		e.deniedTypes[strings.ToLower(t)] = struct{}{}
	}
	return e
}

// Filter removes businesses, tiers the rest against the mean review count
// and returns at most TopN candidates ordered by (score, rating) descending.
func (e *Engine) Filter(candidates []gems.Candidate) ([]gems.ScoredCandidate, error) {
	start := time.Now()

	if len(candidates) == 0 {
		e.logger.Info("no candidates to filter", nil)
		return nil, ErrZeroGems
	}

	survivors := make([]gems.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if e.IsBusiness(c) {
			continue
		}
		survivors = append(survivors, c)
	}
	if len(survivors) == 0 {
		e.logger.Info("all candidates rejected as businesses", map[string]interface{}{
			"inputCount": len(candidates),
		})
		return nil, ErrZeroGems
	}

	total := 0
	for _, c := range survivors {
		total += nonNegative(c.ReviewCount)
	}
	mean := float64(total) / float64(len(survivors))

	tierCounts := map[gems.Tier]int{}
	scored := make([]gems.ScoredCandidate, 0, len(survivors))
	for _, c := range survivors {
		if tier, score, ok := e.classify(c, mean); ok {
			scored = append(scored, gems.ScoredCandidate{Candidate: c, Score: score, Tier: tier})
			tierCounts[tier]++
		}
	}

	if len(scored) == 0 {
		for _, c := range survivors {
			if c.Rating >= e.config.FallbackMinRating {
				scored = append(scored, gems.ScoredCandidate{Candidate: c, Score: scoreFallback, Tier: gems.TierFallback})
				tierCounts[gems.TierFallback]++
			}
		}
	}

	if len(scored) == 0 {
		e.logger.Info("no candidate met any tier", map[string]interface{}{
			"inputCount":  len(candidates),
			"survivors":   len(survivors),
			"meanReviews": mean,
		})
		return nil, ErrZeroGems
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Rating > scored[j].Rating
	})

	if len(scored) > e.config.TopN {
		scored = scored[:e.config.TopN]
	}

	for tier, n := range tierCounts {
		metrics.FilterCandidates.WithLabelValues(string(tier)).Add(float64(n))
	}

	e.logger.Info("filtering completed", map[string]interface{}{
		"inputCount":  len(candidates),
		"survivors":   len(survivors),
		"outputCount": len(scored),
		"meanReviews": mean,
		"high":        tierCounts[gems.TierHigh],
		"medium":      tierCounts[gems.TierMedium],
		"low":         tierCounts[gems.TierLow],
		"fallback":    tierCounts[gems.TierFallback],
		"durationMs":  time.Since(start).Milliseconds(),
	})

	return scored, nil
}

// classify applies the tier rules in order; the first match wins.
func (e *Engine) classify(c gems.Candidate, mean float64) (gems.Tier, int, bool) {
	reviews := float64(nonNegative(c.ReviewCount))
	minReviews := float64(e.config.MinReviews)

	switch {
	case reviews >= minReviews && reviews <= mean/2 && c.Rating >= e.config.MinRating:
		return gems.TierHigh, scoreHigh, true
	case reviews >= minReviews && reviews <= mean && c.Rating >= e.config.MinRating:
		return gems.TierMedium, scoreMedium, true
	case reviews <= 2*mean && c.Rating >= e.config.LowTierMinRating:
		return gems.TierLow, scoreLow, true
	default:
		return "", 0, false
	}
}

// IsBusiness reports whether the candidate is a commercial establishment
// by type or by a denylisted word in its name.
func (e *Engine) IsBusiness(c gems.Candidate) bool {
	for _, t := range c.Types {
		if _, denied := e.deniedTypes[strings.ToLower(t)]; denied {
			return true
		}
	}

	name := " " + normalizeName(c.Name) + " "
	for _, kw := range e.nameKeywords {
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}

// normalizeName lowercases s and collapses every non-alphanumeric run into
// a single space so keywords match on word boundaries.
func normalizeName(s string) string {
	var b strings.Builder
	space := true
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
