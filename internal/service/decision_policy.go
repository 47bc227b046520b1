package service

import (
	"fmt"
	"math"

	"github.com/damoang/angple-qualitygate/internal/config"
	"github.com/damoang/angple-qualitygate/internal/domain"
)

// DecisionPolicy turns a score card into a decision. It holds no state
// beyond its thresholds and is safe for concurrent use.
type DecisionPolicy struct {
	cfg config.PolicyConfig
}

// NewDecisionPolicy validates cfg and builds a policy
func NewDecisionPolicy(cfg config.PolicyConfig) (*DecisionPolicy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &DecisionPolicy{cfg: cfg}, nil
}

// Config returns the thresholds in use
func (p *DecisionPolicy) Config() config.PolicyConfig {
	return p.cfg
}

// Composite weighted average of the four scored dimensions, bounded to 0..100
// and rounded to two decimals. Safety only gates, it is not scored.
func (p *DecisionPolicy) Composite(card domain.ScoreCard) float64 {
	c := p.cfg
	total := c.ImageWeight + c.ContentWeight + c.SEOWeight + c.BrandWeight
	sum := c.ImageWeight*float64(bound(card.Image)) +
		c.ContentWeight*float64(bound(card.Content)) +
		c.SEOWeight*float64(bound(card.SEO)) +
		c.BrandWeight*float64(bound(card.Brand))

	v := sum / total
	v = math.Max(0, math.Min(100, v))
	return math.Round(v*100) / 100
}

// Evaluate computes the composite and decides
func (p *DecisionPolicy) Evaluate(card domain.ScoreCard) domain.Verdict {
	return p.Decide(card, p.Composite(card))
}

// Decide applies the gates in precedence order: safety, brand minimum,
// thresholds on overall, then the per-dimension minimums which can only
// lower an auto-approve to a review.
func (p *DecisionPolicy) Decide(card domain.ScoreCard, overall float64) domain.Verdict {
	c := p.cfg
	v := domain.Verdict{OverallScore: overall, Reasons: []string{}}

	if !card.SafetyPass {
		v.Decision = domain.DecisionReject
		v.Reasons = append(v.Reasons, "safety check failed")
		return v
	}
	if card.Brand < c.BrandMinimum {
		v.Decision = domain.DecisionReject
		v.Reasons = append(v.Reasons, fmt.Sprintf("brand score %d below minimum %d", card.Brand, c.BrandMinimum))
		return v
	}

	var weak []string
	if card.Image < c.ImageMinimum {
		weak = append(weak, fmt.Sprintf("image score %d below minimum %d", card.Image, c.ImageMinimum))
	}
	if card.Content < c.ContentMinimum {
		weak = append(weak, fmt.Sprintf("content score %d below minimum %d", card.Content, c.ContentMinimum))
	}
	if card.SEO < c.SEOMinimum {
		weak = append(weak, fmt.Sprintf("seo score %d below minimum %d", card.SEO, c.SEOMinimum))
	}

	switch {
	case overall >= float64(c.AutoApproveThreshold) && len(weak) == 0:
		v.Decision = domain.DecisionAutoApprove
	case overall >= float64(c.MinPublishThreshold):
		v.Decision = domain.DecisionRequireReview
		if overall < float64(c.AutoApproveThreshold) {
			v.Reasons = append(v.Reasons, fmt.Sprintf("overall score %.2f below auto-approve threshold %d", overall, c.AutoApproveThreshold))
		}
		v.Reasons = append(v.Reasons, weak...)
	default:
		v.Decision = domain.DecisionReject
		v.Reasons = append(v.Reasons, fmt.Sprintf("overall score %.2f below publish threshold %d", overall, c.MinPublishThreshold))
		v.Reasons = append(v.Reasons, weak...)
	}
	return v
}

func bound(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
