package domain

import "time"

// Decision output of one evaluation
type Decision string

const (
	DecisionAutoApprove   Decision = "auto_approve"
	DecisionRequireReview Decision = "require_review"
	DecisionReject        Decision = "reject"
)

// Analyzer names
const (
	AnalyzerImage   = "image"
	AnalyzerContent = "content"
	AnalyzerSEO     = "seo"
	AnalyzerBrand   = "brand"
	AnalyzerSafety  = "safety"
)

// Issue codes shared across analyzers
const (
	IssueTimeout       = "timeout"
	IssueAnalyzerError = "analyzer_error"
)

// Issue a structured finding reported by an analyzer
type Issue struct {
	Analyzer string `json:"analyzer"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

// AnalyzerScore result of a single analyzer. Pass is only meaningful for
// hard-gate analyzers (safety, brand); soft analyzers always report true.
type AnalyzerScore struct {
	Name   string  `json:"name"`
	Score  int     `json:"score"`
	Pass   bool    `json:"pass"`
	Issues []Issue `json:"issues"`
}

// FailedScore is what an analyzer contributes when it times out or errors
func FailedScore(name, code, message string) AnalyzerScore {
	return AnalyzerScore{
		Name:   name,
		Score:  0,
		Pass:   false,
		Issues: []Issue{{Analyzer: name, Code: code, Message: message}},
	}
}

// ScoreCard the per-dimension inputs of the decision policy
type ScoreCard struct {
	Image      int  `json:"image"`
	Content    int  `json:"content"`
	SEO        int  `json:"seo"`
	Brand      int  `json:"brand"`
	SafetyPass bool `json:"safetyPass"`
}

// Verdict decision plus the reasons that produced it
type Verdict struct {
	Decision     Decision `json:"decision"`
	OverallScore float64  `json:"overallScore"`
	Reasons      []string `json:"reasons"`
}

// QualityGateResult one evaluation run of a post. Never updated after insert.
type QualityGateResult struct {
	ID           uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	PostID       string    `gorm:"column:post_id;type:varchar(36);not null;index:idx_qgr_post_evaluated,priority:1" json:"postId"`
	TenantID     string    `gorm:"column:tenant_id;type:varchar(64);not null;index" json:"tenantId"`
	AttemptID    string    `gorm:"column:attempt_id;type:varchar(36);not null;uniqueIndex" json:"attemptId"`
	ImageScore   int       `gorm:"column:image_score" json:"imageScore"`
	ContentScore int       `gorm:"column:content_score" json:"contentScore"`
	SEOScore     int       `gorm:"column:seo_score" json:"seoScore"`
	BrandScore   int       `gorm:"column:brand_score" json:"brandScore"`
	SafetyPass   bool      `gorm:"column:safety_pass" json:"safetyPass"`
	OverallScore float64   `gorm:"column:overall_score" json:"overallScore"`
	Decision     Decision  `gorm:"column:decision;type:varchar(20);not null" json:"decision"`
	Reasons      []string  `gorm:"column:reasons;type:text;serializer:json" json:"reasons"`
	Issues       []Issue   `gorm:"column:issues;type:text;serializer:json" json:"issues"`
	EvaluatedAt  time.Time `gorm:"column:evaluated_at;not null;index:idx_qgr_post_evaluated,priority:2" json:"evaluatedAt"`
}

// TableName returns the table name
func (QualityGateResult) TableName() string {
	return "quality_gate_results"
}

// ScoreCard rebuilds the policy inputs stored on the row
func (r *QualityGateResult) ScoreCard() ScoreCard {
	return ScoreCard{
		Image:      r.ImageScore,
		Content:    r.ContentScore,
		SEO:        r.SEOScore,
		Brand:      r.BrandScore,
		SafetyPass: r.SafetyPass,
	}
}

// QualityReport response body of GET /quality/:postId/report
type QualityReport struct {
	OverallScore float64   `json:"overallScore"`
	Decision     Decision  `json:"decision"`
	Scores       ScoreCard `json:"scores"`
	Reasons      []string  `json:"reasons"`
	Issues       []Issue   `json:"issues"`
	EvaluatedAt  time.Time `json:"evaluatedAt"`
}

// ToReport converts the stored row to its API shape
func (r *QualityGateResult) ToReport() QualityReport {
	reasons := r.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	issues := r.Issues
	if issues == nil {
		issues = []Issue{}
	}
	return QualityReport{
		OverallScore: r.OverallScore,
		Decision:     r.Decision,
		Scores:       r.ScoreCard(),
		Reasons:      reasons,
		Issues:       issues,
		EvaluatedAt:  r.EvaluatedAt,
	}
}
