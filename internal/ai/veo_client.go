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

// VeoClient drives long-running video generation on the Gemini API.
type VeoClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewVeoClient(cfg *Config) *VeoClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.VideoModel
	if model == "" {
		model = DefaultVideoModel
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}

	return &VeoClient{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type veoRequest struct {
	Instances  []veoInstance `json:"instances"`
	Parameters veoParams     `json:"parameters"`
}

type veoInstance struct {
	Prompt    string    `json:"prompt"`
	Image     *veoImage `json:"image,omitempty"`
	LastFrame *veoImage `json:"lastFrame,omitempty"`
}

type veoImage struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType"`
}

type veoParams struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
}

type veoVideo struct {
	URI                string `json:"uri"`
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	EncodedVideo       string `json:"encodedVideo"`
	MimeType           string `json:"mimeType"`
}

type veoSample struct {
	Video veoVideo `json:"video"`
}

type veoOperation struct {
	Name     string `json:"name"`
	Done     bool   `json:"done"`
	Response *struct {
		GenerateVideoResponse *struct {
			GeneratedSamples []veoSample `json:"generatedSamples"`
		} `json:"generateVideoResponse"`
		GeneratedVideos []veoSample `json:"generatedVideos"`
		UsageMetadata   *Usage      `json:"usageMetadata"`
	} `json:"response"`
	Error *googleError `json:"error"`
}

func (c *VeoClient) StartGeneration(ctx context.Context, req VideoRequest) (*Operation, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	aspect := req.AspectRatio
	if aspect == "" {
		aspect = DefaultAspectRatio
	}
	if len(req.Image.Data) == 0 {
		return nil, fmt.Errorf("first frame image is required")
	}

	instance := veoInstance{
		Prompt: req.Prompt,
		Image:  toVeoImage(req.Image),
	}
	if req.LastFrame != nil {
		instance.LastFrame = toVeoImage(*req.LastFrame)
	}

	payload, err := json.Marshal(veoRequest{
		Instances:  []veoInstance{instance},
		Parameters: veoParams{AspectRatio: aspect},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:predictLongRunning", c.baseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	op, err := c.doOperation(httpReq)
	if err != nil {
		return nil, fmt.Errorf("veo submit failed: %w", err)
	}
	if op.Name == "" && !op.Done {
		return nil, fmt.Errorf("veo submit returned no operation name")
	}
	return op, nil
}

func (c *VeoClient) GetOperation(ctx context.Context, name string) (*Operation, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, strings.TrimLeft(name, "/"))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	op, err := c.doOperation(httpReq)
	if err != nil {
		return nil, fmt.Errorf("veo poll failed: %w", err)
	}
	return op, nil
}

func (c *VeoClient) Download(ctx context.Context, video GeneratedVideo) ([]byte, error) {
	if len(video.Data) > 0 {
		return video.Data, nil
	}
	if video.URI == "" {
		return nil, fmt.Errorf("generated video has neither bytes nor uri")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, video.URI, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	// Downloads can take longer than API calls, so the context bounds them instead of the client timeout.
	client := *c.httpClient
	client.Timeout = 0

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to download video: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read video body: %w", err)
	}
	return data, nil
}

func (c *VeoClient) doOperation(httpReq *http.Request) (*Operation, error) {
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: truncateBody(body)}
	}

	var raw veoOperation
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal operation: %w", err)
	}

	return raw.toOperation()
}

func (o *veoOperation) toOperation() (*Operation, error) {
	op := &Operation{Name: o.Name, Done: o.Done}
	if o.Error != nil {
		op.Error = o.Error.Message
	}
	if o.Response == nil {
		return op, nil
	}
	if o.Response.UsageMetadata != nil {
		op.Usage = *o.Response.UsageMetadata
	}

	samples := o.Response.GeneratedVideos
	if o.Response.GenerateVideoResponse != nil && len(o.Response.GenerateVideoResponse.GeneratedSamples) > 0 {
		samples = o.Response.GenerateVideoResponse.GeneratedSamples
	}

	for _, s := range samples {
		v := GeneratedVideo{URI: s.Video.URI, MIMEType: s.Video.MimeType}
		encoded := s.Video.BytesBase64Encoded
		if encoded == "" {
			encoded = s.Video.EncodedVideo
		}
		if encoded != "" {
			data, err := base64.StdEncoding.DecodeString(encoded)
			if err != nil {
				return nil, fmt.Errorf("failed to decode inline video: %w", err)
			}
			v.Data = data
		}
		op.Videos = append(op.Videos, v)
	}

	return op, nil
}

func toVeoImage(img Image) *veoImage {
	mimeType := img.MIMEType
	if mimeType == "" {
		mimeType = DetectImageMIME(img.Data, "")
	}
	return &veoImage{
		BytesBase64Encoded: base64.StdEncoding.EncodeToString(img.Data),
		MimeType:           mimeType,
	}
}
