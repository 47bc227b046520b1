package analyzer

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/damoang/angple-qualitygate/internal/domain"
)

const (
	minCaptionRunes = 20
	maxCaptionRunes = 2200
	maxCapsRatio    = 0.6
)

var repeatedPunctuation = regexp.MustCompile(`[!?]{3,}|\.{4,}`)

// ContentAnalyzer scores caption length and readability
type ContentAnalyzer struct{}

// NewContentAnalyzer creates a ContentAnalyzer
func NewContentAnalyzer() *ContentAnalyzer { return &ContentAnalyzer{} }

// Name implements Analyzer
func (a *ContentAnalyzer) Name() string { return domain.AnalyzerContent }

// Evaluate implements Analyzer
func (a *ContentAnalyzer) Evaluate(_ context.Context, in Input) (domain.AnalyzerScore, error) {
	caption := strings.TrimSpace(in.Post.Caption)
	if caption == "" {
		return domain.AnalyzerScore{
			Name:   domain.AnalyzerContent,
			Score:  0,
			Pass:   true,
			Issues: []domain.Issue{{Analyzer: domain.AnalyzerContent, Code: "empty_caption", Message: "caption is empty"}},
		}, nil
	}

	score := 100
	var issues []domain.Issue
	add := func(code, msg string, penalty int) {
		score -= penalty
		issues = append(issues, domain.Issue{Analyzer: domain.AnalyzerContent, Code: code, Message: msg})
	}

	n := utf8.RuneCountInString(caption)
	switch {
	case n < minCaptionRunes:
		add("caption_too_short", fmt.Sprintf("caption has %d characters, minimum %d", n, minCaptionRunes), 30)
	case n > maxCaptionRunes:
		add("caption_too_long", fmt.Sprintf("caption has %d characters, maximum %d", n, maxCaptionRunes), 40)
	}

	var letters, upper int
	for _, r := range caption {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters >= 10 && float64(upper)/float64(letters) > maxCapsRatio {
		add("excessive_caps", "caption is mostly upper case", 20)
	}

	if repeatedPunctuation.MatchString(caption) {
		add("repeated_punctuation", "caption contains repeated punctuation", 10)
	}

	return domain.AnalyzerScore{Name: domain.AnalyzerContent, Score: clamp(score), Pass: true, Issues: issues}, nil
}
