package analyzer

import (
	"context"
	"fmt"
	"regexp"

	"github.com/damoang/angple-qualitygate/internal/domain"
)

const (
	minHashtags = 3
	maxHashtags = 15
)

var hashtagPattern = regexp.MustCompile(`^#?[\p{L}\p{N}_]+$`)

// SEOAnalyzer scores hashtag hygiene and keyword coverage
type SEOAnalyzer struct{}

// NewSEOAnalyzer creates an SEOAnalyzer
func NewSEOAnalyzer() *SEOAnalyzer { return &SEOAnalyzer{} }

// Name implements Analyzer
func (a *SEOAnalyzer) Name() string { return domain.AnalyzerSEO }

// Evaluate implements Analyzer
func (a *SEOAnalyzer) Evaluate(_ context.Context, in Input) (domain.AnalyzerScore, error) {
	score := 100
	var issues []domain.Issue
	add := func(code, msg string, penalty int) {
		score -= penalty
		issues = append(issues, domain.Issue{Analyzer: domain.AnalyzerSEO, Code: code, Message: msg})
	}

	tags := in.Post.Hashtags
	switch n := len(tags); {
	case n == 0:
		add("missing_hashtags", "post has no hashtags", 40)
	case n < minHashtags:
		add("too_few_hashtags", fmt.Sprintf("%d hashtags, recommended at least %d", n, minHashtags), 20)
	case n > maxHashtags:
		add("too_many_hashtags", fmt.Sprintf("%d hashtags, recommended at most %d", n, maxHashtags), 25)
	}

	seen := make(map[string]bool, len(tags))
	duplicate := false
	invalid := 0
	for _, t := range tags {
		if !hashtagPattern.MatchString(t) {
			invalid++
			continue
		}
		key := normalizeTerm(t)
		if seen[key] {
			duplicate = true
		}
		seen[key] = true
	}
	if duplicate {
		add("duplicate_hashtags", "hashtags repeat", 10)
	}
	if invalid > 0 {
		penalty := invalid * 10
		if penalty > 30 {
			penalty = 30
		}
		add("invalid_hashtag", fmt.Sprintf("%d hashtags contain invalid characters", invalid), penalty)
	}

	if len(in.BrandKit.Keywords) > 0 {
		tokens := postTokens(in.Post.Caption, tags)
		found := false
		for _, kw := range in.BrandKit.Keywords {
			if containsTerm(tokens, kw) {
				found = true
				break
			}
		}
		if !found {
			add("missing_keywords", "none of the brand keywords appear in the post", 15)
		}
	}

	return domain.AnalyzerScore{Name: domain.AnalyzerSEO, Score: clamp(score), Pass: true, Issues: issues}, nil
}
