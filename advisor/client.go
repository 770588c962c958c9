// File: advisor/client.go
package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Marianu08/trading-alg-rama01/portfolio"
	"github.com/Marianu08/trading-alg-rama01/utilities"
)

const (
	groqChatURL   = "https://api.groq.com/openai/v1/chat/completions"
	openAIChatURL = "https://api.openai.com/v1/chat/completions"
	geminiURLFmt  = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent?key=%s"
)

const systemPrompt = "You are a concise portfolio analyst. Given a ranked table of " +
	"crypto positions and a list of inactive assets, write a short plain-text " +
	"briefing: what looks strong, what looks weak, and which positions deserve " +
	"attention. No financial advice disclaimers, no markdown."

// SummaryError wraps a failure of the smart-summary provider so callers can
// embed the message in the report instead of failing the whole run.
type SummaryError struct {
	Provider string
	Err      error
}

func (e *SummaryError) Error() string {
	return fmt.Sprintf("advisor %s: %v", e.Provider, e.Err)
}

func (e *SummaryError) Unwrap() error { return e.Err }

// Client talks to a chat-completion style LLM provider to turn the ranking
// tables into a human-readable briefing.
type Client struct {
	cfg        utilities.AdvisorConfig
	httpClient *http.Client
	logger     *utilities.Logger
}

func NewClient(cfg utilities.AdvisorConfig, logger *utilities.Logger) *Client {
	timeout := cfg.RequestTimeoutSec
	if timeout == 0 {
		timeout = 30
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(timeout) * time.Second},
		logger:     logger,
	}
}

// Summarize renders the ranking into a prompt and asks the configured
// provider for a briefing. Failures come back as *SummaryError.
func (c *Client) Summarize(ctx context.Context, summary []portfolio.SummaryRow, deadAssets []string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", &SummaryError{Provider: c.cfg.Provider, Err: fmt.Errorf("api key not configured")}
	}
	prompt := buildPrompt(summary, deadAssets)
	c.logger.LogDebug("advisor: requesting summary from %s model %s", c.cfg.Provider, c.cfg.Model)

	var (
		text string
		err  error
	)
	switch strings.ToLower(c.cfg.Provider) {
	case "groq":
		text, err = c.chatCompletion(ctx, groqChatURL, prompt)
	case "openai":
		text, err = c.chatCompletion(ctx, openAIChatURL, prompt)
	case "gemini":
		text, err = c.geminiGenerate(ctx, prompt)
	default:
		err = fmt.Errorf("unknown provider %q", c.cfg.Provider)
	}
	if err != nil {
		return "", &SummaryError{Provider: c.cfg.Provider, Err: err}
	}
	return strings.TrimSpace(text), nil
}

func buildPrompt(summary []portfolio.SummaryRow, deadAssets []string) string {
	var b strings.Builder
	b.WriteString("Ranked positions (rank, name, trend, margin, buy limit reached):\n")
	for _, row := range summary {
		margin := "n/a"
		if row.MarginAmount != nil {
			margin = fmt.Sprintf("%.2f", *row.MarginAmount)
		}
		fmt.Fprintf(&b, "%d. %s trend=%.3f margin=%s blr=%d\n",
			row.Ranking, row.Name, row.Trend, margin, row.BuyLimit)
	}
	if len(deadAssets) > 0 {
		b.WriteString("Inactive assets: ")
		b.WriteString(strings.Join(deadAssets, ", "))
		b.WriteString("\n")
	}
	return b.String()
}

func (c *Client) chatCompletion(ctx context.Context, endpoint, prompt string) (string, error) {
	payload := map[string]interface{}{
		"model": c.cfg.Model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": prompt},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := utilities.DoJSONRequest(c.httpClient, req, 1, 2*time.Second, &resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", fmt.Errorf("provider error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) geminiGenerate(ctx context.Context, prompt string) (string, error) {
	endpoint := fmt.Sprintf(geminiURLFmt, c.cfg.Model, c.cfg.APIKey)
	payload := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": []map[string]string{{"text": systemPrompt + "\n\n" + prompt}}},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := utilities.DoJSONRequest(c.httpClient, req, 1, 2*time.Second, &resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", fmt.Errorf("provider error: %s", resp.Error.Message)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty generation response")
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}
