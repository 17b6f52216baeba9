// Package ai scores page content through an LLM and returns the structured
// summary that becomes the hosted report body.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/eflav/aio-index/internal/utils"
	"github.com/eflav/aio-index/pkg/report"
)

// Config controls how the scorer behaves.
type Config struct {
	Provider   string
	APIKey     string
	Model      string
	Endpoint   string
	HTTPClient *http.Client
}

// Scorer produces a scored summary for one page's extracted text.
type Scorer interface {
	Score(ctx context.Context, pageURL, text string) (report.Summary, error)
}

const (
	defaultProvider = "openai"
	defaultModel    = "gpt-4o-mini"
	defaultEndpoint = "https://api.openai.com/v1/chat/completions"
)

// NewScorer builds a concrete Scorer implementation based on the provided config.
func NewScorer(cfg Config) (Scorer, error) {
	cfg.Provider = strings.TrimSpace(strings.ToLower(cfg.Provider))
	if cfg.Provider == "" {
		cfg.Provider = defaultProvider
	}

	switch cfg.Provider {
	case "openai":
		return newOpenAIScorer(cfg)
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", cfg.Provider)
	}
}

type httpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type openAIScorer struct {
	apiKey   string
	model    string
	endpoint string
	client   httpClient
}

func newOpenAIScorer(cfg Config) (*openAIScorer, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("scoring requires an API key (set openai.api_key in config or OPENAI_API_KEY)")
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = defaultEndpoint
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 45 * time.Second}
	}

	return &openAIScorer{
		apiKey:   apiKey,
		model:    model,
		endpoint: endpoint,
		client:   httpClient,
	}, nil
}

// Score asks the model for a structured summary of the page text. A response
// that isn't valid JSON degrades to a minimal summary with a zero score
// instead of failing the pipeline.
func (s *openAIScorer) Score(ctx context.Context, pageURL, text string) (report.Summary, error) {
	utils.Log.Debugf("[ai] scoring %s (%d chars)", pageURL, len(text))

	reqBody := openAIChatRequest{
		Model: s.model,
		Messages: []openAIMessage{
			{Role: "user", Content: buildPrompt(pageURL, text)},
		},
		Temperature:    0.1,
		ResponseFormat: openAIResponseFormat{Type: "json_object"},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return report.Summary{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return report.Summary{}, err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return report.Summary{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErrResp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErrResp)
		if apiErrResp.Error.Message != "" {
			return report.Summary{}, fmt.Errorf("scoring: %s", apiErrResp.Error.Message)
		}
		return report.Summary{}, fmt.Errorf("scoring failed with HTTP %d", resp.StatusCode)
	}

	var apiResp openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return report.Summary{}, err
	}

	if len(apiResp.Choices) == 0 || strings.TrimSpace(apiResp.Choices[0].Message.Content) == "" {
		return report.Summary{}, errors.New("scoring returned an empty response")
	}

	content := strings.TrimSpace(apiResp.Choices[0].Message.Content)
	return parseSummary(content, text), nil
}

// parseSummary decodes the model output, falling back to a bare summary of
// the raw text when the output isn't the JSON we asked for.
func parseSummary(content, text string) report.Summary {
	var parsed report.Summary
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		utils.Log.Warn("[ai] unparsable model output: ", err)
		return report.Summary{
			Summary:  truncate(text, 120) + "...",
			Services: []string{},
			Topics:   []string{},
		}
	}
	return parsed
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func buildPrompt(pageURL, text string) string {
	return fmt.Sprintf(`You are an AI Optimization assistant. Analyze the following webpage content
and output a compact JSON object with these fields:

{
  "summary": "...",
  "brand": "...",
  "services": ["..."],
  "location": "...",
  "topics": ["..."],
  "aio_score": integer 0-100 estimating AI readability and clarity
}

Page URL: %s
Content:
%s`, pageURL, truncate(text, 7000))
}

type openAIChatRequest struct {
	Model          string               `json:"model"`
	Messages       []openAIMessage      `json:"messages"`
	Temperature    float64              `json:"temperature"`
	ResponseFormat openAIResponseFormat `json:"response_format"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponseFormat struct {
	Type string `json:"type"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}
