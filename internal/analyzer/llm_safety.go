package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"github.com/damoang/angple-qualitygate/internal/domain"
)

const safetySystemPrompt = `You review social media posts before they are published.
Answer with a single JSON object: {"safe": true|false, "categories": [string], "reason": string}.
Mark a post unsafe when it contains hate speech, harassment, sexual content, violence,
self-harm, illegal activity or misleading health or financial claims.`

// errRetryable marks responses worth another attempt (5xx, transport failures)
var errRetryable = errors.New("retryable provider error")

// LLMSafetyAnalyzer runs the rule-based safety check first, then asks an
// OpenAI-compatible chat completion endpoint for a second opinion.
type LLMSafetyAnalyzer struct {
	rules      *SafetyAnalyzer
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	executor   failsafe.Executor[string]
}

// NewLLMSafetyAnalyzer creates an LLMSafetyAnalyzer
func NewLLMSafetyAnalyzer(rules *SafetyAnalyzer, baseURL, apiKey, model string, timeout time.Duration) *LLMSafetyAnalyzer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	policy := retrypolicy.NewBuilder[string]().
		WithBackoff(100*time.Millisecond, time.Second).
		WithMaxRetries(2).
		HandleIf(func(_ string, err error) bool {
			return errors.Is(err, errRetryable)
		}).
		Build()

	return &LLMSafetyAnalyzer{
		rules:      rules,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		executor:   failsafe.With[string](policy),
	}
}

// Name implements Analyzer
func (a *LLMSafetyAnalyzer) Name() string { return domain.AnalyzerSafety }

// Evaluate implements Analyzer
func (a *LLMSafetyAnalyzer) Evaluate(ctx context.Context, in Input) (domain.AnalyzerScore, error) {
	base, err := a.rules.Evaluate(ctx, in)
	if err != nil || !base.Pass {
		return base, err
	}

	var lastErr error
	raw, err := a.executor.WithContext(ctx).Get(func() (string, error) {
		out, callErr := a.callProvider(ctx, buildSafetyMessage(in))
		if callErr != nil {
			lastErr = callErr
		}
		return out, callErr
	})
	if err != nil {
		if lastErr != nil {
			return domain.AnalyzerScore{}, lastErr
		}
		return domain.AnalyzerScore{}, err
	}

	verdict, err := parseSafetyVerdict(raw)
	if err != nil {
		return domain.AnalyzerScore{}, err
	}
	if verdict.Safe {
		return base, nil
	}

	msg := verdict.Reason
	if len(verdict.Categories) > 0 {
		msg = fmt.Sprintf("%s (%s)", verdict.Reason, strings.Join(verdict.Categories, ", "))
	}
	return domain.AnalyzerScore{
		Name:   domain.AnalyzerSafety,
		Score:  0,
		Pass:   false,
		Issues: []domain.Issue{{Analyzer: domain.AnalyzerSafety, Code: "unsafe_content", Message: msg}},
	}, nil
}

func buildSafetyMessage(in Input) string {
	var parts []string
	parts = append(parts, "## Caption")
	parts = append(parts, in.Post.Caption)
	if len(in.Post.Hashtags) > 0 {
		parts = append(parts, "", "## Hashtags", strings.Join(in.Post.Hashtags, " "))
	}
	if in.BrandKit.Name != "" {
		parts = append(parts, "", "## Brand", in.BrandKit.Name)
	}
	return strings.Join(parts, "\n")
}

func (a *LLMSafetyAnalyzer) callProvider(ctx context.Context, userMessage string) (string, error) {
	reqBody := map[string]interface{}{
		"model":       a.model,
		"max_tokens":  256,
		"temperature": 0,
		"messages": []map[string]string{
			{"role": "system", "content": safetySystemPrompt},
			{"role": "user", "content": userMessage},
		},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %v", errRetryable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("%w: status %d", errRetryable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("provider error (%d): %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return "", errors.New("provider returned no content")
	}
	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

type safetyVerdict struct {
	Safe       bool     `json:"safe"`
	Categories []string `json:"categories"`
	Reason     string   `json:"reason"`
}

func parseSafetyVerdict(raw string) (*safetyVerdict, error) {
	var v safetyVerdict
	if err := json.Unmarshal([]byte(extractJSON(raw)), &v); err != nil {
		return nil, fmt.Errorf("parse safety verdict: %w", err)
	}
	if !v.Safe && v.Reason == "" {
		v.Reason = "flagged by content review model"
	}
	return &v, nil
}

// extractJSON pulls the body out of a fenced code block if present
func extractJSON(raw string) string {
	if idx := strings.Index(raw, "```"); idx >= 0 {
		start := strings.Index(raw[idx:], "\n")
		if start >= 0 {
			end := strings.Index(raw[idx+start+1:], "```")
			if end >= 0 {
				return strings.TrimSpace(raw[idx+start+1 : idx+start+1+end])
			}
		}
	}
	return raw
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
