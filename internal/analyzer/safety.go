package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/damoang/angple-qualitygate/internal/domain"
)

// defaultBlockedTerms baseline profanity list; tenants and config extend it
var defaultBlockedTerms = []string{
	"fuck", "fucking", "shit", "bitch", "asshole", "bastard", "cunt", "dickhead", "motherfucker",
}

// SafetyAnalyzer hard gate on profanity and blocked terms.
// Any hit fails the post regardless of its other scores.
type SafetyAnalyzer struct {
	blocked []string
}

// NewSafetyAnalyzer creates a SafetyAnalyzer with the default list plus extra
func NewSafetyAnalyzer(extra []string) *SafetyAnalyzer {
	blocked := make([]string, 0, len(defaultBlockedTerms)+len(extra))
	blocked = append(blocked, defaultBlockedTerms...)
	for _, t := range extra {
		if t = strings.TrimSpace(t); t != "" {
			blocked = append(blocked, t)
		}
	}
	return &SafetyAnalyzer{blocked: blocked}
}

// Name implements Analyzer
func (a *SafetyAnalyzer) Name() string { return domain.AnalyzerSafety }

// Evaluate implements Analyzer
func (a *SafetyAnalyzer) Evaluate(_ context.Context, in Input) (domain.AnalyzerScore, error) {
	tokens := postTokens(in.Post.Caption, in.Post.Hashtags)

	var issues []domain.Issue
	check := func(terms []string, code string) {
		for _, term := range terms {
			if containsTerm(tokens, term) {
				issues = append(issues, domain.Issue{
					Analyzer: domain.AnalyzerSafety,
					Code:     code,
					Message:  fmt.Sprintf("blocked term %q detected", term),
				})
			}
		}
	}
	check(a.blocked, "profanity_detected")
	check(in.BrandKit.BlockedTerms, "blocked_term")

	if len(issues) > 0 {
		return domain.AnalyzerScore{Name: domain.AnalyzerSafety, Score: 0, Pass: false, Issues: issues}, nil
	}
	return domain.AnalyzerScore{Name: domain.AnalyzerSafety, Score: 100, Pass: true}, nil
}
