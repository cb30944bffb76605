package ai

import (
	"context"
	"fmt"
	"time"
)

const (
	DefaultBaseURL      = "https://generativelanguage.googleapis.com/v1beta"
	DefaultVisionModel  = "gemini-2.0-flash"
	DefaultVideoModel   = "veo-3.1-fast-generate-preview"
	DefaultAspectRatio  = "16:9"
	DefaultPollInterval = 15 * time.Second
)

type ContentGenerator interface {
	GenerateContent(ctx context.Context, req ContentRequest) (*ContentResponse, error)
}

type VideoGenerator interface {
	StartGeneration(ctx context.Context, req VideoRequest) (*Operation, error)
	GetOperation(ctx context.Context, name string) (*Operation, error)
	Download(ctx context.Context, video GeneratedVideo) ([]byte, error)
}

// Part is one element of a multimodal prompt: either inline bytes or text.
type Part struct {
	Text     string
	Data     []byte
	MIMEType string
}

func TextPart(text string) Part {
	return Part{Text: text}
}

func ImagePart(data []byte, mimeType string) Part {
	return Part{Data: data, MIMEType: mimeType}
}

type ContentRequest struct {
	Model            string
	Parts            []Part
	ResponseMIMEType string
}

type ContentResponse struct {
	Model string
	Text  string
	Usage Usage
}

type Usage struct {
	PromptTokens    int `json:"promptTokenCount"`
	CandidateTokens int `json:"candidatesTokenCount"`
	TotalTokens     int `json:"totalTokenCount"`
}

type Image struct {
	Data     []byte
	MIMEType string
}

type VideoRequest struct {
	Model       string
	Prompt      string
	Image       Image
	LastFrame   *Image
	AspectRatio string
}

type Operation struct {
	Name   string
	Done   bool
	Error  string
	Videos []GeneratedVideo
	Usage  Usage
}

type GeneratedVideo struct {
	URI      string
	Data     []byte
	MIMEType string
}

type Config struct {
	APIKey      string
	BaseURL     string
	VisionModel string
	VideoModel  string
	Timeout     time.Duration
}

func NewConfig() *Config {
	return &Config{
		BaseURL:     DefaultBaseURL,
		VisionModel: DefaultVisionModel,
		VideoModel:  DefaultVideoModel,
		Timeout:     2 * time.Minute,
	}
}

// APIError is returned for any non-2xx answer from the provider.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini api error: HTTP %d: %s", e.StatusCode, e.Body)
}
