package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vmyazin/planner-mcp/internal/services"
)

const DefaultBaseURL = "https://api.openai.com/v1"

// Config connection settings of an OpenAI-compatible endpoint.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
	Now     func() time.Time // clock for the "Today is" line and relative dates
}

// OpenAIClient classifies intents and answers open-ended chat over /chat/completions.
type OpenAIClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	logger  *logrus.Logger
	now     func() time.Time
}

var (
	_ services.Classifier = (*OpenAIClient)(nil)
	_ services.Responder  = (*OpenAIClient)(nil)
)

func NewOpenAIClient(cfg Config, logger *logrus.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &OpenAIClient{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
		now:     cfg.Now,
	}, nil
}

// Classify asks the model for {"intent": ..., "params": {...}} and validates it.
// Small talk comes back as (nil, nil); every failure wraps services.ErrClassification.
func (c *OpenAIClient) Classify(ctx context.Context, utterance string) (*services.Intent, error) {
	now := c.now()
	prompt := fmt.Sprintf("Today is %s.\nUser message: %s", now.Format("Monday, 2006-01-02"), utterance)

	response, err := c.callAPI(ctx, classifySystemPrompt, prompt, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", services.ErrClassification, err)
	}

	intent, err := services.ParseIntent(response, now)
	if err != nil {
		c.logger.WithField("response", truncate(response, 200)).Debug("unusable classifier reply")
		return nil, fmt.Errorf("%w: %v", services.ErrClassification, err)
	}
	return intent, nil
}

// Respond produces a free-form reply given the task/history context.
func (c *OpenAIClient) Respond(ctx context.Context, utterance, convContext string) (string, error) {
	prompt := fmt.Sprintf("%s\n\nUser message: %s", convContext, utterance)
	return c.callAPI(ctx, respondSystemPrompt, prompt, 0.7)
}

func (c *OpenAIClient) callAPI(ctx context.Context, system, prompt string, temperature float64) (string, error) {
	requestBody := chatRequest{
		Model: c.model,
		Messages: []Message{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		Temperature: temperature,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	c.logger.WithFields(logrus.Fields{
		"model":    c.model,
		"status":   resp.StatusCode,
		"duration": time.Since(start).Round(time.Millisecond),
	}).Debug("chat completion")

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error: %s - %s", resp.Status, truncate(string(body), 300))
	}

	var apiResponse APIResponse
	if err := json.Unmarshal(body, &apiResponse); err != nil {
		return "", err
	}
	if len(apiResponse.Choices) == 0 {
		return "", fmt.Errorf("no response from API")
	}

	return apiResponse.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type APIResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}
