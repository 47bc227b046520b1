package analyzer

import (
	"context"
	"fmt"

	"github.com/damoang/angple-qualitygate/internal/domain"
)

// BrandAnalyzer checks the post against the tenant's brand kit.
// It is a hard gate: Pass is false when the score is below the brand minimum.
type BrandAnalyzer struct {
	minimum int
}

// NewBrandAnalyzer creates a BrandAnalyzer
func NewBrandAnalyzer(minimum int) *BrandAnalyzer {
	return &BrandAnalyzer{minimum: minimum}
}

// Name implements Analyzer
func (a *BrandAnalyzer) Name() string { return domain.AnalyzerBrand }

// Evaluate implements Analyzer
func (a *BrandAnalyzer) Evaluate(_ context.Context, in Input) (domain.AnalyzerScore, error) {
	kit := in.BrandKit
	tokens := postTokens(in.Post.Caption, in.Post.Hashtags)

	score := 100
	var issues []domain.Issue

	forbiddenPenalty := 0
	for _, term := range kit.ForbiddenTerms {
		if containsTerm(tokens, term) {
			forbiddenPenalty += 40
			issues = append(issues, domain.Issue{
				Analyzer: domain.AnalyzerBrand,
				Code:     "forbidden_brand_term",
				Message:  fmt.Sprintf("post uses forbidden term %q", term),
			})
		}
	}
	if forbiddenPenalty > 80 {
		forbiddenPenalty = 80
	}
	score -= forbiddenPenalty

	missingPenalty := 0
	for _, term := range kit.RequiredTerms {
		if !containsTerm(tokens, term) {
			missingPenalty += 10
			issues = append(issues, domain.Issue{
				Analyzer: domain.AnalyzerBrand,
				Code:     "missing_brand_term",
				Message:  fmt.Sprintf("post does not mention %q", term),
			})
		}
	}
	if missingPenalty > 30 {
		missingPenalty = 30
	}
	score -= missingPenalty

	if len(kit.BrandHashtags) > 0 {
		used := make(map[string]bool, len(in.Post.Hashtags))
		for _, h := range in.Post.Hashtags {
			used[normalizeTerm(h)] = true
		}
		found := false
		for _, h := range kit.BrandHashtags {
			if used[normalizeTerm(h)] {
				found = true
				break
			}
		}
		if !found {
			score -= 15
			issues = append(issues, domain.Issue{
				Analyzer: domain.AnalyzerBrand,
				Code:     "missing_brand_hashtag",
				Message:  "none of the brand hashtags are used",
			})
		}
	}

	score = clamp(score)
	return domain.AnalyzerScore{
		Name:   domain.AnalyzerBrand,
		Score:  score,
		Pass:   score >= a.minimum,
		Issues: issues,
	}, nil
}
