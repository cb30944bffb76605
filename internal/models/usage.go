package models

import "time"

type APIUsage struct {
	ID              int64         `json:"id"`
	TourID          string        `json:"tour_id,omitempty"`
	PropertyCode    string        `json:"property_code"`
	Process         string        `json:"process"`
	Model           string        `json:"model"`
	Elapsed         time.Duration `json:"elapsed"`
	PromptTokens    int           `json:"prompt_tokens"`
	CandidateTokens int           `json:"candidate_tokens"`
	TotalTokens     int           `json:"total_tokens"`
	CreatedAt       time.Time     `json:"created_at"`
}

type ModelTotals struct {
	Model           string `json:"model"`
	Calls           int64  `json:"calls"`
	PromptTokens    int64  `json:"prompt_tokens"`
	CandidateTokens int64  `json:"candidate_tokens"`
	TotalTokens     int64  `json:"total_tokens"`
}
