// Package analyzer holds the scoring functions the quality gate aggregates.
//
// Every analyzer is side-effect free and deterministic for identical input.
// Run wraps a call with the configured timeout so that a slow or failing
// analyzer degrades to a zero/fail score instead of stalling the evaluation.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/damoang/angple-qualitygate/internal/common"
	"github.com/damoang/angple-qualitygate/internal/domain"
	"github.com/damoang/angple-qualitygate/internal/metrics"
	"github.com/damoang/angple-qualitygate/pkg/logger"
)

// Input everything an analyzer may look at
type Input struct {
	Post     domain.ScheduledPost
	Asset    domain.Asset
	BrandKit domain.BrandKit
}

// Analyzer scores one dimension of a post
type Analyzer interface {
	Name() string
	Evaluate(ctx context.Context, in Input) (domain.AnalyzerScore, error)
}

// Func adapts a function to the Analyzer interface
type Func struct {
	ID string
	Fn func(ctx context.Context, in Input) (domain.AnalyzerScore, error)
}

// Name implements Analyzer
func (f Func) Name() string { return f.ID }

// Evaluate implements Analyzer
func (f Func) Evaluate(ctx context.Context, in Input) (domain.AnalyzerScore, error) {
	return f.Fn(ctx, in)
}

// Set the five analyzers the orchestrator fans out to
type Set struct {
	Image   Analyzer
	Content Analyzer
	SEO     Analyzer
	Brand   Analyzer
	Safety  Analyzer
}

// All returns the analyzers in a fixed order
func (s Set) All() []Analyzer {
	return []Analyzer{s.Image, s.Content, s.SEO, s.Brand, s.Safety}
}

// Validate ensures no slot is empty
func (s Set) Validate() error {
	names := []string{domain.AnalyzerImage, domain.AnalyzerContent, domain.AnalyzerSEO, domain.AnalyzerBrand, domain.AnalyzerSafety}
	for i, a := range s.All() {
		if a == nil {
			return fmt.Errorf("%w: %s analyzer is not configured", common.ErrValidation, names[i])
		}
	}
	return nil
}

// NewDefaultSet builds the rule-based analyzers
func NewDefaultSet(brandMinimum int, blockedTerms []string) Set {
	return Set{
		Image:   NewImageAnalyzer(),
		Content: NewContentAnalyzer(),
		SEO:     NewSEOAnalyzer(),
		Brand:   NewBrandAnalyzer(brandMinimum),
		Safety:  NewSafetyAnalyzer(blockedTerms),
	}
}

type outcome struct {
	score domain.AnalyzerScore
	err   error
}

// Run evaluates a with a deadline. It never returns an error: a timeout,
// an error or a panic all yield {score: 0, pass: false}.
func Run(ctx context.Context, a Analyzer, timeout time.Duration, in Input) domain.AnalyzerScore {
	name := a.Name()
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("analyzer %s panicked: %v", name, r)}
			}
		}()
		score, err := a.Evaluate(ctx, in)
		done <- outcome{score: score, err: err}
	}()

	select {
	case <-ctx.Done():
		metrics.AnalyzerFailures.WithLabelValues(name, domain.IssueTimeout).Inc()
		logger.GetLogger().Warn().Str("analyzer", name).Dur("timeout", timeout).Msg("analyzer timed out")
		return domain.FailedScore(name, domain.IssueTimeout, fmt.Sprintf("%s analyzer did not answer within %s", name, timeout))
	case o := <-done:
		if o.err != nil {
			code := domain.IssueAnalyzerError
			if errors.Is(o.err, context.DeadlineExceeded) || errors.Is(o.err, common.ErrAnalyzerTimeout) {
				code = domain.IssueTimeout
			}
			metrics.AnalyzerFailures.WithLabelValues(name, code).Inc()
			logger.GetLogger().Warn().Err(o.err).Str("analyzer", name).Msg("analyzer failed")
			return domain.FailedScore(name, code, o.err.Error())
		}
		return normalize(name, o.score)
	}
}

func normalize(name string, s domain.AnalyzerScore) domain.AnalyzerScore {
	s.Name = name
	s.Score = clamp(s.Score)
	if s.Issues == nil {
		s.Issues = []domain.Issue{}
	}
	for i := range s.Issues {
		if s.Issues[i].Analyzer == "" {
			s.Issues[i].Analyzer = name
		}
	}
	return s
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
