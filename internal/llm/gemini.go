package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// geminiAPIBase is a var to allow test overrides via httptest.
// The model name and API key are appended per request.
var geminiAPIBase = "https://generativelanguage.googleapis.com/v1beta/models"

// GeminiAPIBase returns the current Gemini API base URL.
// Exposed for use by integration tests via httptest servers.
func GeminiAPIBase() string { return geminiAPIBase }

// SetGeminiAPIBase overrides the Gemini API base URL.
// Intended for use in tests only.
func SetGeminiAPIBase(u string) { geminiAPIBase = u }

type geminiProvider struct {
	model  string
	apiKey string // unexported; never serialized by encoding/json
}

type geminiRequest struct {
	SystemInstruction *geminiContent   `json:"system_instruction,omitempty"`
	Contents          []geminiContent  `json:"contents"`
	GenerationConfig  geminiGenConfig  `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	ModelVersion string `json:"modelVersion"`
	Error        *struct {
		Code    int    `json:"code"`
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *geminiProvider) Complete(ctx context.Context, req *Request) (*Response, error) {
	model := p.model
	if req.Model != "" {
		model = req.Model
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	body := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: req.UserPrompt}}},
		},
		GenerationConfig: geminiGenConfig{MaxOutputTokens: maxTokens},
	}
	if req.SystemPrompt != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.SystemPrompt}}}
	}
	if req.Temperature != 0 {
		t := req.Temperature
		body.GenerationConfig.Temperature = &t
	}

	url := fmt.Sprintf("%s/%s:generateContent", geminiAPIBase, model)
	headers := map[string]string{"x-goog-api-key": p.apiKey}
	statusCode, respBytes, err := postJSON(ctx, url, headers, body)
	if err != nil {
		return nil, err
	}
	respStr := string(respBytes)

	var gr geminiResponse
	if err := json.Unmarshal(respBytes, &gr); err != nil {
		return nil, fmt.Errorf("parsing response JSON (HTTP %d, body: %s): %w", statusCode, truncate(respStr, 200), err)
	}

	// Check status code first, then structured error field.
	if statusCode != http.StatusOK {
		if gr.Error != nil {
			return nil, fmt.Errorf("gemini: %s: %s", gr.Error.Status, gr.Error.Message)
		}
		return nil, fmt.Errorf("gemini: HTTP %d: %s", statusCode, truncate(respStr, 200))
	}

	var content string
	for _, cand := range gr.Candidates {
		for _, part := range cand.Content.Parts {
			content += part.Text
		}
		break // first candidate only
	}
	if content == "" {
		return nil, fmt.Errorf("gemini: no text content in response (got %d candidates)", len(gr.Candidates))
	}

	return &Response{
		Content: content,
		Model:   fmt.Sprintf("gemini:%s", model),
	}, nil
}
