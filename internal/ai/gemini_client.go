package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxErrorBody = 4096

type GeminiClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewGeminiClient(cfg *Config) *GeminiClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.VisionModel
	if model == "" {
		model = DefaultVisionModel
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}

	return &GeminiClient{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type geminiRequest struct {
	Contents         []geminiContent   `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string        `json:"text,omitempty"`
	InlineData *geminiInline `json:"inline_data,omitempty"`
}

type geminiInline struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseMimeType string `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata *Usage       `json:"usageMetadata"`
	Error         *googleError `json:"error"`
}

type googleError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

func (c *GeminiClient) GenerateContent(ctx context.Context, req ContentRequest) (*ContentResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	parts := make([]geminiPart, 0, len(req.Parts))
	for _, p := range req.Parts {
		if p.Data != nil {
			parts = append(parts, geminiPart{
				InlineData: &geminiInline{
					MimeType: p.MIMEType,
					Data:     base64.StdEncoding.EncodeToString(p.Data),
				},
			})
			continue
		}
		parts = append(parts, geminiPart{Text: p.Text})
	}

	reqBody := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: parts}},
	}
	if req.ResponseMIMEType != "" {
		reqBody.GenerationConfig = &generationConfig{ResponseMimeType: req.ResponseMIMEType}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: truncateBody(body)}
	}

	var gResp geminiResponse
	if err := json.Unmarshal(body, &gResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if gResp.Error != nil {
		return nil, fmt.Errorf("gemini error: %s", gResp.Error.Message)
	}

	if len(gResp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates in gemini response")
	}

	var text strings.Builder
	for _, part := range gResp.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}

	out := &ContentResponse{
		Model: model,
		Text:  text.String(),
	}
	if gResp.UsageMetadata != nil {
		out.Usage = *gResp.UsageMetadata
	}

	return out, nil
}

func truncateBody(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody])
	}
	return string(body)
}
