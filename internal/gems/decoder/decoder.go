// Package decoder recovers a CanonicalResult from free-form stage output.
//
// Decoding runs an ordered list of strategies and stops at the first one
// that produces a record; when none does, the result is an ERROR record.
// Decode never panics and never returns an error.
package decoder

import (
	"strings"

	apperrors "gem-finder/internal/common/errors"
	"gem-finder/internal/common/metrics"
	"gem-finder/internal/gems"

	"github.com/goccy/go-json"
)

const (
	StrategyFenced     = "fenced"
	StrategyKeyed      = "keyed-object"
	StrategyEmbedded   = "embedded-object"
	StrategyMarkdown   = "markdown"
	StrategyNoResults  = "no-results-prose"
	StrategyFallback   = "fallback"
	emptyOutputMessage = "empty stage output"
	undecodablePrefix  = "unable to decode stage output: "
)

// Strategy is one step of the decoding cascade. Apply reports false when
// the input is not in the shape the strategy understands.
type Strategy struct {
	Name  string
	Apply func(raw string) (gems.CanonicalResult, bool)
}

// Decoder applies its strategies in order.
type Decoder struct {
	strategies []Strategy
}

// DefaultStrategies returns the standard cascade.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: StrategyFenced, Apply: decodeFenced},
		{Name: StrategyKeyed, Apply: decodeKeyed},
		{Name: StrategyEmbedded, Apply: decodeEmbedded},
		{Name: StrategyMarkdown, Apply: decodeMarkdown},
		{Name: StrategyNoResults, Apply: decodeNoResults},
	}
}

// New builds a decoder. With no strategies it uses DefaultStrategies.
func New(strategies ...Strategy) *Decoder {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &Decoder{strategies: strategies}
}

func (d *Decoder) Decode(raw string) gems.CanonicalResult {
	result, _ := d.Trace(raw)
	return result
}

// Trace decodes raw and also reports which strategy produced the result.
func (d *Decoder) Trace(raw string) (gems.CanonicalResult, string) {
	if strings.TrimSpace(raw) == "" {
		metrics.DecoderStrategy.WithLabelValues(StrategyFallback).Inc()
		return gems.NewError(emptyOutputMessage), StrategyFallback
	}

	for _, s := range d.strategies {
		if result, ok := safeApply(s, raw); ok {
			metrics.DecoderStrategy.WithLabelValues(s.Name).Inc()
			return result, s.Name
		}
	}

	metrics.DecoderStrategy.WithLabelValues(StrategyFallback).Inc()
	return gems.NewError(undecodablePrefix + apperrors.Truncate(strings.TrimSpace(raw), 200)), StrategyFallback
}

func safeApply(s Strategy, raw string) (result gems.CanonicalResult, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			result, ok = gems.CanonicalResult{}, false
		}
	}()
	return s.Apply(raw)
}

var std = New()

// Decode runs the default cascade.
func Decode(raw string) gems.CanonicalResult {
	return std.Decode(raw)
}

// Trace runs the default cascade and names the winning strategy.
func Trace(raw string) (gems.CanonicalResult, string) {
	return std.Trace(raw)
}

// Encode serializes a normalized copy of r.
func Encode(r gems.CanonicalResult) ([]byte, error) {
	r.Normalize()
	return json.Marshal(r)
}

func decodeFenced(raw string) (gems.CanonicalResult, bool) {
	blocks := fencedBlocks(raw)
	if len(blocks) == 0 {
		return gems.CanonicalResult{}, false
	}
	return parseCanonical(blocks[0])
}

func decodeKeyed(raw string) (gems.CanonicalResult, bool) {
	locs := keyedOpenPattern.FindAllStringIndex(raw, maxParseAttempts)
	if len(locs) == 0 {
		return gems.CanonicalResult{}, false
	}
	ends := make(map[int]int)
	for _, sp := range valueSpans(raw) {
		ends[sp.start] = sp.end
	}
	for _, loc := range locs {
		end, ok := ends[loc[0]]
		if !ok {
			continue
		}
		if result, ok := parseCanonical(raw[loc[0]:end]); ok {
			return result, true
		}
	}
	return gems.CanonicalResult{}, false
}

func decodeEmbedded(raw string) (gems.CanonicalResult, bool) {
	for i, sp := range objectCandidates(raw) {
		if i == maxParseAttempts {
			break
		}
		if result, ok := parseCanonical(sp.text(raw)); ok {
			return result, true
		}
	}
	return gems.CanonicalResult{}, false
}
