package interpret

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// GoogleClient calls the Gemini generateContent API.
type GoogleClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewGoogleClient creates a Gemini client. An empty model defaults to
// gemini-2.0-flash.
func NewGoogleClient(apiKey, model string) *GoogleClient {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GoogleClient{
		apiKey:     apiKey,
		model:      model,
		baseURL:    "https://generativelanguage.googleapis.com/v1beta",
		httpClient: &http.Client{},
	}
}

type googleRequest struct {
	Contents          []googleContent `json:"contents"`
	SystemInstruction *googleContent  `json:"systemInstruction,omitempty"`
	GenerationConfig  googleGenConfig `json:"generationConfig"`
}

type googleContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []googlePart `json:"parts"`
}

type googlePart struct {
	Text string `json:"text"`
}

type googleGenConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type googleResponse struct {
	Candidates []struct {
		Content googleContent `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

// Complete sends the conversation to Gemini. System messages become the
// systemInstruction; "assistant" maps to Gemini's "model" role.
func (c *GoogleClient) Complete(ctx context.Context, messages []Message) (*Response, error) {
	var system *googleContent
	contents := make([]googleContent, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			system = &googleContent{Parts: []googlePart{{Text: msg.Content}}}
		case "assistant":
			contents = append(contents, googleContent{Role: "model", Parts: []googlePart{{Text: msg.Content}}})
		default:
			contents = append(contents, googleContent{Role: msg.Role, Parts: []googlePart{{Text: msg.Content}}})
		}
	}

	reqBody := googleRequest{
		Contents:          contents,
		SystemInstruction: system,
		GenerationConfig: googleGenConfig{
			Temperature:     0.3,
			MaxOutputTokens: 1024,
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Provider: "google", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var googleResp googleResponse
	if err := json.Unmarshal(body, &googleResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(googleResp.Candidates) == 0 || len(googleResp.Candidates[0].Content.Parts) == 0 {
		return nil, ErrEmptyResponse
	}

	text := ""
	for _, p := range googleResp.Candidates[0].Content.Parts {
		text += p.Text
	}
	if text == "" {
		return nil, ErrEmptyResponse
	}

	return &Response{
		Content:      text,
		Model:        c.model,
		InputTokens:  googleResp.UsageMetadata.PromptTokenCount,
		OutputTokens: googleResp.UsageMetadata.CandidatesTokenCount,
	}, nil
}

// Provider returns the provider name.
func (c *GoogleClient) Provider() string { return "google" }

// Model returns the model name.
func (c *GoogleClient) Model() string { return c.model }
