package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dshills/regcritic/internal/policy"
)

func TestNewProvider_UnknownPrefix(t *testing.T) {
	_, err := NewProvider("cohere:command-r")
	if err == nil {
		t.Error("expected error for unknown provider prefix, got nil")
	}
}

func TestNewProvider_InvalidFormat(t *testing.T) {
	_, err := NewProvider("nocoIon")
	if err == nil {
		t.Error("expected error for missing colon separator, got nil")
	}
}

func TestNewProvider_Gemini_NoKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	_, err := NewProvider("gemini:gemini-2.0-flash")
	if err == nil {
		t.Error("expected error when GEMINI_API_KEY not set, got nil")
	}
}

func TestNewProvider_Anthropic_NoKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	_, err := NewProvider("anthropic:claude-sonnet-4-6")
	if err == nil {
		t.Error("expected error when ANTHROPIC_API_KEY not set, got nil")
	}
}

func TestNewProvider_OpenAI_NoKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := NewProvider("openai:gpt-4o")
	if err == nil {
		t.Error("expected error when OPENAI_API_KEY not set, got nil")
	}
}

func TestNewProvider_Gemini_WithKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key-for-construction-only")
	p, err := NewProvider("gemini:gemini-2.0-flash")
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if p == nil {
		t.Error("expected non-nil provider")
	}
}

func TestNewProvider_Anthropic_WithKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-key-for-construction-only")
	p, err := NewProvider("anthropic:claude-sonnet-4-6")
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if p == nil {
		t.Error("expected non-nil provider")
	}
}

func TestGeminiComplete_ParsesCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		if !strings.Contains(r.URL.Path, "gemini-2.0-flash:generateContent") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates": [{"content": {"role": "model", "parts": [{"text": "hello "}, {"text": "world"}]}}]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	original := GeminiAPIBase()
	SetGeminiAPIBase(srv.URL)
	defer SetGeminiAPIBase(original)

	p := &geminiProvider{model: "gemini-2.0-flash", apiKey: "test-key"}
	resp, err := p.Complete(context.Background(), &Request{UserPrompt: "hi"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "hello world" {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.Model != "gemini:gemini-2.0-flash" {
		t.Errorf("model = %q", resp.Model)
	}
}

func TestGeminiComplete_StructuredError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error": {"code": 403, "status": "PERMISSION_DENIED", "message": "bad key"}}`)) //nolint:errcheck
	}))
	defer srv.Close()

	original := GeminiAPIBase()
	SetGeminiAPIBase(srv.URL)
	defer SetGeminiAPIBase(original)

	p := &geminiProvider{model: "gemini-2.0-flash", apiKey: "bad"}
	_, err := p.Complete(context.Background(), &Request{UserPrompt: "hi"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "PERMISSION_DENIED") {
		t.Errorf("error %q should carry the API status", err)
	}
}

func TestBuildSpecialistSystemPrompt_IncludesInstruction(t *testing.T) {
	sys := BuildSpecialistSystemPrompt("You are a HIPAA Privacy Rule specialist.")
	if !strings.Contains(sys, "regulatory compliance specialist") {
		t.Error("system prompt missing shared base")
	}
	if !strings.Contains(sys, "HIPAA Privacy Rule specialist") {
		t.Error("system prompt missing instruction")
	}
}

func TestBuildSpecialistUserPrompt_Sections(t *testing.T) {
	docs := []policy.Document{{Path: "baa.md", Content: "BAA terms\n"}}
	prompt := BuildSpecialistUserPrompt("query body", []byte(`{"stats": {}}`), docs)

	if !strings.Contains(prompt, "<query>\nquery body\n</query>") {
		t.Errorf("prompt missing query block: %q", prompt)
	}
	if !strings.Contains(prompt, "<scan>") {
		t.Error("prompt missing scan block")
	}
	if !strings.Contains(prompt, `<policy file="baa.md">`) {
		t.Error("prompt missing policy block")
	}
	if !strings.Contains(prompt, "short_summary") {
		t.Error("prompt missing schema example")
	}
}

func TestBuildSpecialistUserPrompt_NoOptionalSections(t *testing.T) {
	prompt := BuildSpecialistUserPrompt("q", nil, nil)
	if strings.Contains(prompt, "<scan>") {
		t.Error("prompt should omit scan block when empty")
	}
	if strings.Contains(prompt, "<policy") {
		t.Error("prompt should omit policy block when no documents")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("hello", 10); got != "hello" {
		t.Errorf("truncate short string: got %q", got)
	}
	if got := truncate("hello world", 5); got != "hello..." {
		t.Errorf("truncate long string: got %q", got)
	}
	// Multi-byte: é is 2 bytes but 1 rune; truncating at 3 runes should not cut mid-codepoint.
	if got := truncate("héllo", 3); got != "hél..." {
		t.Errorf("truncate multibyte: got %q, want %q", got, "hél...")
	}
}
