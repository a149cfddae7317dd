package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/valpere/bhasha/internal/langid"
	"github.com/valpere/bhasha/internal/postprocess"
	"github.com/valpere/bhasha/internal/validator"
)

const (
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultOpenAIModel   = "gpt-4o-mini"
)

// OpenAIService detects language through an OpenAI-compatible chat
// completions endpoint (OpenAI itself, OpenRouter, or a local gateway).
type OpenAIService struct {
	apiKey    string
	baseURL   string
	model     string
	catalog   *langid.Catalog
	validator *validator.Validator
	client    *http.Client
}

func NewOpenAIService(apiKey, baseURL, model string, catalog *langid.Catalog) *OpenAIService {
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIService{
		apiKey:    apiKey,
		baseURL:   baseURL,
		model:     model,
		catalog:   catalog,
		validator: validator.New(catalog),
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *OpenAIService) Name() string {
	return "openai"
}

func (s *OpenAIService) Detect(ctx context.Context, req DetectRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	if s.apiKey == "" {
		result.Error = "OpenAI API key required"
		return result, fmt.Errorf("openai: %w", ErrNoAPIKey)
	}

	body := map[string]interface{}{
		"model": s.model,
		"messages": []map[string]string{
			{"role": "user", "content": buildPrompt(s.catalog, req.Text)},
		},
		"temperature": 0.1,
		"max_tokens":  10,
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		result.Error = fmt.Sprintf("failed to marshal request: %v", err)
		return result, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/chat/completions", s.baseURL), bytes.NewBuffer(jsonData))
	if err != nil {
		result.Error = fmt.Sprintf("failed to create request: %v", err)
		return result, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.apiKey))

	resp, err := s.client.Do(httpReq)
	if err != nil {
		result.Error = fmt.Sprintf("request failed: %v", err)
		return result, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		result.Error = fmt.Sprintf("API returned status %d: %v", resp.StatusCode, errResp)
		return result, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var chatResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		result.Error = fmt.Sprintf("failed to decode response: %v", err)
		return result, err
	}

	if len(chatResp.Choices) == 0 {
		result.Error = "empty response from API"
		return result, fmt.Errorf("empty response from API")
	}

	reply := chatResp.Choices[0].Message.Content
	result.Language, result.Confidence = languageFromReply(reply, s.validator)
	result.Metadata = map[string]string{
		"model":             s.model,
		"reply":             reply,
		"prompt_tokens":     fmt.Sprintf("%d", chatResp.Usage.PromptTokens),
		"completion_tokens": fmt.Sprintf("%d", chatResp.Usage.CompletionTokens),
	}

	return result, nil
}

func (s *OpenAIService) IsAvailable(ctx context.Context) error {
	if s.apiKey == "" {
		return fmt.Errorf("openai: %w", ErrNoAPIKey)
	}
	return nil
}

// languageFromReply maps a model reply to a catalog code. Replies naming an
// unsupported language resolve to the default, as the widget does.
func languageFromReply(reply string, v *validator.Validator) (string, float64) {
	if code := postprocess.Code(reply, v.Normalize); code != "" {
		return code, 0.8
	}
	return langid.DefaultLanguage, 0.3
}
