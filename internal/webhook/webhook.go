// Package webhook forwards chat messages to the workflow-automation backend
// and turns its loosely shaped replies into display text.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const (
	// Source identifies this client in every payload.
	Source = "chatbot_web"

	// FallbackReply is shown when the backend answered but carried no text.
	FallbackReply = "I processed your request successfully."
	// UnreadableReply is shown when the backend answered with nothing at all.
	UnreadableReply = "I received your message but couldn't process the response."
	// FailureReply is shown to the user when the backend cannot be reached.
	FailureReply = "⚠ Sorry, I'm having trouble connecting right now. Please try again in a moment."

	defaultTimeout = 30 * time.Second
)

var ErrEmptyMessage = errors.New("empty message")

// Payload is the JSON body posted to the webhook.
type Payload struct {
	Message          string `json:"message"`
	Language         string `json:"language"`
	DetectedLanguage string `json:"detectedLanguage"`
	Timestamp        string `json:"timestamp"`
	Source           string `json:"source"`
}

type Client struct {
	url    string
	client *http.Client
	now    func() time.Time
}

func NewClient(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		url:    url,
		client: &http.Client{Timeout: timeout},
		now:    time.Now,
	}
}

// Send posts message with the language it should be answered in and the
// language that was detected, and returns the cleaned reply text. An empty
// detected falls back to language.
func (c *Client) Send(ctx context.Context, message, language, detected string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", ErrEmptyMessage
	}
	if c.url == "" {
		return "", fmt.Errorf("webhook url not configured")
	}
	if detected == "" {
		detected = language
	}

	body, err := json.Marshal(Payload{
		Message:          message,
		Language:         language,
		DetectedLanguage: detected,
		Timestamp:        c.now().UTC().Format(time.RFC3339Nano),
		Source:           Source,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("webhook error: status %d", resp.StatusCode)
	}

	return ParseReply(data), nil
}

// ParseReply extracts the reply text from any of the shapes the workflow
// backend produces. Bodies that are not JSON are used verbatim.
func ParseReply(data []byte) string {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return UnreadableReply
	}

	var v interface{}
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return CleanReply(string(trimmed))
	}
	if v == nil {
		return UnreadableReply
	}

	if text := extract(v); text != "" {
		return CleanReply(text)
	}
	return FallbackReply
}

func extract(v interface{}) string {
	switch data := v.(type) {
	case []interface{}:
		if len(data) == 0 {
			return ""
		}
		switch first := data[0].(type) {
		case string:
			return first
		case map[string]interface{}:
			if inner, ok := first["json"].(map[string]interface{}); ok {
				if s := stringField(inner, "output"); s != "" {
					return s
				}
			}
			return firstField(first, "output", "text")
		}
	case map[string]interface{}:
		return firstField(data, "output", "reply", "text", "message")
	case string:
		return data
	}
	return ""
}

func firstField(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s := stringField(m, k); s != "" {
			return s
		}
	}
	return ""
}

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

var (
	headingRe = regexp.MustCompile(`(?m)^#{1,6}\s*`)
	bulletRe  = regexp.MustCompile(`(?m)^(\s*)\* `)
)

// CleanReply strips markdown emphasis and headings, turns "* " bullets into
// "• " and expands literal \n sequences.
func CleanReply(s string) string {
	s = strings.ReplaceAll(s, `\n`, "\n")
	s = strings.ReplaceAll(s, "**", "")
	s = bulletRe.ReplaceAllString(s, "$1• ")
	s = headingRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
