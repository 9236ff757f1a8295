// Package claude implements ai.Evaluator against the Claude completion API.
package claude

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

	"analysis-backend/internal/ai"
	"analysis-backend/internal/match"
	"analysis-backend/internal/profile"
	"analysis-backend/internal/shared/telemetry"
)

const (
	defaultTimeout = 30 * time.Second
	maxTokens      = 2000
	temperature    = 0.3
)

// Client implements ai.Evaluator using the Claude complete endpoint.
type Client struct {
	apiURL     string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient constructs a Claude client. apiURL is the provider base URL
// without the /v1/complete suffix.
func NewClient(apiURL, apiKey, model string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(apiURL) == "" {
		return nil, fmt.Errorf("CLAUDE_API_URL is required")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("CLAUDE_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("CLAUDE_MODEL is required")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		apiURL: strings.TrimRight(apiURL, "/"),
		apiKey: apiKey,
		model:  model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type completeRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	Stream      bool    `json:"stream"`
}

type completeResponse struct {
	Completion string `json:"completion"`
}

// completionPayload is the structured verdict embedded in the completion text.
type completionPayload struct {
	MatchScore         *float64       `json:"match_score"`
	SkillAnalysis      map[string]any `json:"skill_analysis"`
	ExperienceAnalysis map[string]any `json:"experience_analysis"`
	Strengths          []string       `json:"strengths"`
	Gaps               []string       `json:"gaps"`
	ConfidenceScore    *float64       `json:"confidence_score"`
}

// Evaluate sends one profile/requirements pair for evaluation and parses the
// structured verdict out of the completion text.
func (c *Client) Evaluate(ctx context.Context, p *profile.Profile, req match.Requirements, correlationID string) (ai.Evaluation, error) {
	start := time.Now()
	requestID := "req_" + correlationID

	prompt, err := buildPrompt(p, req)
	if err != nil {
		return ai.Evaluation{}, fmt.Errorf("%w: prompt build: %v", ai.ErrInvalidResponse, err)
	}

	raw, err := c.completeOnce(ctx, prompt, requestID)
	if err != nil {
		telemetry.Error("claude.request_failed", map[string]any{
			"request_id": requestID,
			"error":      err.Error(),
		})
		return ai.Evaluation{}, err
	}

	evaluation, err := parseCompletion(raw)
	if err != nil {
		return ai.Evaluation{}, err
	}
	evaluation.RequestID = requestID
	evaluation.Model = c.model
	evaluation.Timestamp = time.Now().UTC()
	evaluation.ProcessingTime = time.Since(start).Seconds()
	return evaluation, nil
}

func (c *Client) completeOnce(ctx context.Context, prompt, requestID string) ([]byte, error) {
	payload, err := json.Marshal(completeRequest{
		Model:       c.model,
		Prompt:      prompt,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/v1/complete", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return nil, fmt.Errorf("%w: %v", ai.ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ai.ErrTransient, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ai.ErrTransient, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ai.ErrTransient, resp.StatusCode)
	default:
		return nil, fmt.Errorf("%w: status %d", ai.ErrInvalidResponse, resp.StatusCode)
	}
}

// parseCompletion extracts and validates the verdict JSON embedded in the
// completion text. Scores are clamped to the provider's 0-100 scale.
func parseCompletion(raw []byte) (ai.Evaluation, error) {
	var resp completeResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return ai.Evaluation{}, fmt.Errorf("%w: response parse: %v", ai.ErrInvalidResponse, err)
	}
	completion := strings.TrimSpace(resp.Completion)
	if completion == "" {
		return ai.Evaluation{}, fmt.Errorf("%w: empty completion", ai.ErrInvalidResponse)
	}

	var parsed completionPayload
	if err := json.Unmarshal([]byte(completion), &parsed); err != nil {
		return ai.Evaluation{}, fmt.Errorf("%w: completion parse: %v", ai.ErrInvalidResponse, err)
	}
	if parsed.MatchScore == nil || parsed.ConfidenceScore == nil ||
		parsed.SkillAnalysis == nil || parsed.ExperienceAnalysis == nil ||
		parsed.Strengths == nil || parsed.Gaps == nil {
		return ai.Evaluation{}, fmt.Errorf("%w: missing required fields", ai.ErrInvalidResponse)
	}

	return ai.Evaluation{
		MatchScore:         clampScore(*parsed.MatchScore),
		ConfidenceScore:    clampScore(*parsed.ConfidenceScore),
		SkillAnalysis:      parsed.SkillAnalysis,
		ExperienceAnalysis: parsed.ExperienceAnalysis,
		Strengths:          parsed.Strengths,
		Gaps:               parsed.Gaps,
	}, nil
}

// buildPrompt renders the analysis prompt: profile facts, the requirements,
// and the response schema the completion must follow.
func buildPrompt(p *profile.Profile, req match.Requirements) (string, error) {
	profileJSON, err := json.MarshalIndent(map[string]any{
		"experience":     p.Experience,
		"skills":         p.Skills,
		"education":      p.Education,
		"certifications": p.Certifications,
	}, "", "  ")
	if err != nil {
		return "", err
	}
	requirementsJSON, err := json.MarshalIndent(map[string]any{
		"required_skills":       req.RequiredSkills,
		"preferred_skills":      req.PreferredSkills,
		"min_experience_months": req.MinExperienceMonths,
		"max_experience_months": req.MaxExperienceMonths,
		"role_type":             req.RoleType,
		"industry":              req.Industry,
	}, "", "  ")
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("Analyze the following candidate profile for job fit:\n\n")
	b.WriteString("Profile Information:\n")
	b.Write(profileJSON)
	b.WriteString("\n\nJob Requirements:\n")
	b.Write(requirementsJSON)
	b.WriteString("\n\nPlease provide:\n")
	b.WriteString("1. Overall match score (0-100)\n")
	b.WriteString("2. Skill match analysis\n")
	b.WriteString("3. Experience relevance\n")
	b.WriteString("4. Key strengths and gaps\n")
	b.WriteString("5. Confidence score for this analysis\n\n")
	b.WriteString("Format the response as JSON with the following structure:\n")
	b.WriteString(`{
  "match_score": number,
  "skill_analysis": object,
  "experience_analysis": object,
  "strengths": array,
  "gaps": array,
  "confidence_score": number
}`)
	return b.String(), nil
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
