package detector

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/valpere/bhasha/internal/langid"
	"github.com/valpere/bhasha/internal/validator"
)

func testCatalog(t *testing.T) *langid.Catalog {
	t.Helper()
	c, err := langid.DefaultCatalog()
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}
	return c
}

func chatServer(t *testing.T, status int, reply string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected Authorization header %q", got)
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			w.Write([]byte(`{"error":{"message":"boom"}}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": reply}},
			},
			"usage": map[string]int{"prompt_tokens": 120, "completion_tokens": 1},
		})
	}))
}

func TestOpenAIService_Detect(t *testing.T) {
	catalog := testCatalog(t)

	tests := []struct {
		name     string
		reply    string
		wantLang string
	}{
		{name: "bare code", reply: "ta", wantLang: "ta"},
		{name: "decorated code", reply: "Language code: `mwr`", wantLang: "mwr"},
		{name: "language name", reply: "Gujarati", wantLang: "gu"},
		{name: "unsupported", reply: "fr", wantLang: "en"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := chatServer(t, http.StatusOK, tt.reply)
			defer server.Close()

			svc := NewOpenAIService("test-key", server.URL, "", catalog)
			result, err := svc.Detect(context.Background(), DetectRequest{Text: "vanakkam", Selected: "en"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Language != tt.wantLang {
				t.Errorf("Language = %q, want %q", result.Language, tt.wantLang)
			}
			if result.Metadata["model"] != DefaultOpenAIModel {
				t.Errorf("expected default model in metadata, got %v", result.Metadata)
			}
			if result.Latency <= 0 {
				t.Error("expected positive latency")
			}
		})
	}
}

func TestOpenAIService_Detect_RequestShape(t *testing.T) {
	catalog := testCatalog(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model       string              `json:"model"`
			Messages    []map[string]string `json:"messages"`
			Temperature float64             `json:"temperature"`
			MaxTokens   int                 `json:"max_tokens"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		if req.Model != "custom-model" {
			t.Errorf("model = %q", req.Model)
		}
		if req.MaxTokens != 10 {
			t.Errorf("max_tokens = %d", req.MaxTokens)
		}
		if len(req.Messages) != 1 || !strings.Contains(req.Messages[0]["content"], "kem cho") {
			t.Errorf("prompt does not carry the text: %v", req.Messages)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{{"message": map[string]string{"content": "gu"}}},
		})
	}))
	defer server.Close()

	svc := NewOpenAIService("test-key", server.URL, "custom-model", catalog)
	if _, err := svc.Detect(context.Background(), DetectRequest{Text: "kem cho"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestOpenAIService_Detect_NoAPIKey(t *testing.T) {
	svc := NewOpenAIService("", "", "", testCatalog(t))

	result, err := svc.Detect(context.Background(), DetectRequest{Text: "hello"})
	if !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
	if result == nil || result.Error == "" {
		t.Error("expected error message in result")
	}
}

func TestOpenAIService_Detect_APIError(t *testing.T) {
	server := chatServer(t, http.StatusUnauthorized, "")
	defer server.Close()

	svc := NewOpenAIService("test-key", server.URL, "", testCatalog(t))
	result, err := svc.Detect(context.Background(), DetectRequest{Text: "hello"})
	if err == nil {
		t.Error("expected error for non-OK status")
	}
	if result == nil {
		t.Fatal("expected non-nil result")
	}
	if !strings.Contains(result.Error, "401") {
		t.Errorf("expected status in error, got %q", result.Error)
	}
}

func TestOpenAIService_Detect_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	svc := NewOpenAIService("test-key", server.URL, "", testCatalog(t))
	if _, err := svc.Detect(context.Background(), DetectRequest{Text: "hello"}); err == nil {
		t.Error("expected error for empty choices")
	}
}

func TestOpenAIService_IsAvailable(t *testing.T) {
	catalog := testCatalog(t)

	if err := NewOpenAIService("", "", "", catalog).IsAvailable(context.Background()); err == nil {
		t.Error("expected error without API key")
	}
	if err := NewOpenAIService("k", "", "", catalog).IsAvailable(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestOllamaService_Detect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]string{"response": "<think>Telugu words</think> te"})
	}))
	defer server.Close()

	svc := NewOllamaService(server.URL, "", testCatalog(t))
	result, err := svc.Detect(context.Background(), DetectRequest{Text: "nenu baga"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Language != "te" {
		t.Errorf("Language = %q, want te", result.Language)
	}
	if result.Metadata["model"] != DefaultOllamaModel {
		t.Errorf("expected model in metadata, got %v", result.Metadata)
	}
}

func TestOllamaService_Detect_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	svc := NewOllamaService(server.URL, "", testCatalog(t))
	result, err := svc.Detect(context.Background(), DetectRequest{Text: "hello"})
	if err == nil {
		t.Error("expected error for non-OK status")
	}
	if result == nil || result.Error == "" {
		t.Error("expected error message in result")
	}
}

func TestOllamaService_IsAvailable_NotRunning(t *testing.T) {
	svc := NewOllamaService("http://localhost:19999", "", testCatalog(t))
	svc.client = &http.Client{Timeout: 100 * time.Millisecond}

	if err := svc.IsAvailable(context.Background()); err == nil {
		t.Error("expected error when Ollama not available")
	}
}

func TestGoogleService_Name(t *testing.T) {
	svc := NewGoogleService("", testCatalog(t))

	if svc.Name() != "google" {
		t.Errorf("expected 'google', got %q", svc.Name())
	}
}

func TestHeuristicService_Detect(t *testing.T) {
	svc := NewHeuristicService(langid.NewDefault())

	result, err := svc.Detect(context.Background(), DetectRequest{Text: "aap kaise ho", Selected: "en"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Language != "hi" {
		t.Errorf("Language = %q, want hi", result.Language)
	}
	if result.Metadata["method"] != string(langid.MethodExclusive) {
		t.Errorf("method = %q", result.Metadata["method"])
	}
	if err := svc.IsAvailable(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLinguaService_Detect(t *testing.T) {
	svc := NewLinguaService(testCatalog(t))
	if err := svc.IsAvailable(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name     string
		text     string
		wantLang string
	}{
		{name: "english", text: "Hello, this is a question about the admission process.", wantLang: "en"},
		{name: "tamil script", text: "வணக்கம், நீங்கள் எப்படி இருக்கிறீர்கள்?", wantLang: "ta"},
		{name: "telugu script", text: "నమస్కారం, మీరు ఎలా ఉన్నారు?", wantLang: "te"},
		{name: "gujarati script", text: "કેમ છો? તમારું નામ શું છે?", wantLang: "gu"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := svc.Detect(context.Background(), DetectRequest{Text: tt.text})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Language != tt.wantLang {
				t.Errorf("Detect(%q) = %q, want %q", tt.text, result.Language, tt.wantLang)
			}
		})
	}
}

func TestLinguaService_Detect_Empty(t *testing.T) {
	svc := NewLinguaService(testCatalog(t))

	if _, err := svc.Detect(context.Background(), DetectRequest{Text: "  "}); err == nil {
		t.Error("expected error for empty text")
	}
}

func TestLinguaService_Unavailable(t *testing.T) {
	catalog, err := langid.NewCatalog([]langid.ProfileSpec{{Code: "en"}, {Code: "mwr"}})
	if err != nil {
		t.Fatal(err)
	}
	svc := NewLinguaService(catalog)

	if err := svc.IsAvailable(context.Background()); err == nil {
		t.Error("expected lingua to be unavailable with a single shared language")
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := buildPrompt(testCatalog(t), "kem cho")

	for _, want := range []string{`"kem cho"`, "mwr (Marwari)", `"vanakkam"`, `return "ta"`, "Return ONLY the language code"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestLanguageFromReply(t *testing.T) {
	v := validator.New(testCatalog(t))

	if lang, conf := languageFromReply("hi", v); lang != "hi" || conf <= 0.5 {
		t.Errorf("got %q/%v", lang, conf)
	}
	if lang, _ := languageFromReply("no idea", v); lang != "en" {
		t.Errorf("got %q, want en", lang)
	}
}
