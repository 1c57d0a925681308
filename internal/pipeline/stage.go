package pipeline

import (
	"context"
	"fmt"
	"time"

	"gem-finder/internal/common/metrics"
	"gem-finder/internal/gems"
	"gem-finder/internal/gems/decoder"
)

// Generator turns a stage input into text. The gemini client implements it.
type Generator interface {
	Generate(ctx context.Context, stage gems.StageID, input string) (string, error)
}

// Stage is one text-generating step of the pipeline.
type Stage interface {
	ID() gems.StageID
	Run(ctx context.Context, input string) (string, error)
}

// GenerativeStage runs a stage through a Generator with an optional
// per-call timeout.
type GenerativeStage struct {
	id        gems.StageID
	generator Generator
	timeout   time.Duration
}

func NewGenerativeStage(id gems.StageID, generator Generator, timeout time.Duration) *GenerativeStage {
	return &GenerativeStage{id: id, generator: generator, timeout: timeout}
}

func (s *GenerativeStage) ID() gems.StageID { return s.id }

func (s *GenerativeStage) Run(ctx context.Context, input string) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.generator.Generate(ctx, s.id, input)
}

// DefaultStages builds the five generative stages in pipeline order.
func DefaultStages(generator Generator, timeout time.Duration) []Stage {
	ids := []gems.StageID{
		gems.StageIntent,
		gems.StageDiscovery,
		gems.StageRecommend,
		gems.StageAdvice,
		gems.StageConversation,
	}
	stages := make([]Stage, 0, len(ids))
	for _, id := range ids {
		stages = append(stages, NewGenerativeStage(id, generator, timeout))
	}
	return stages
}

// CandidateSearcher returns raw discovery candidates for an intent summary.
type CandidateSearcher interface {
	SearchCandidates(ctx context.Context, query string) ([]gems.Candidate, error)
}

// StageSearcher searches by running the discovery stage and decoding its
// output.
type StageSearcher struct {
	stage Stage
}

func NewStageSearcher(stage Stage) *StageSearcher {
	return &StageSearcher{stage: stage}
}

func (s *StageSearcher) SearchCandidates(ctx context.Context, query string) ([]gems.Candidate, error) {
	start := time.Now()
	raw, err := s.stage.Run(ctx, query)
	if err != nil {
		return nil, err
	}
	candidates, err := decoder.DecodeCandidates(raw)
	if err != nil {
		return nil, fmt.Errorf("decode candidates: %w", err)
	}
	metrics.StageDuration.WithLabelValues("search").Observe(time.Since(start).Seconds())
	return candidates, nil
}
