package models

import (
	"time"

	"github.com/google/uuid"
)

type TourStatus string

const (
	TourRunning      TourStatus = "running"
	TourCompleted    TourStatus = "completed"
	TourNoScenes     TourStatus = "no_scenes"
	TourNoClips      TourStatus = "no_clips"
	TourStitchFailed TourStatus = "stitch_failed"
	TourFailed       TourStatus = "failed"
)

// Tour is one pipeline run for a property.
type Tour struct {
	ID           string     `json:"id"`
	PropertyCode string     `json:"property_code"`
	Status       TourStatus `json:"status"`
	SceneCount   int        `json:"scene_count"`
	ClipDuration float64    `json:"clip_duration"`
	FinalPath    string     `json:"final_path,omitempty"`
	Error        string     `json:"error,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	Clips        []Clip     `json:"clips,omitempty"`
}

func NewTour(propertyCode string) *Tour {
	return &Tour{
		ID:           uuid.New().String(),
		PropertyCode: propertyCode,
		Status:       TourRunning,
		StartedAt:    time.Now(),
	}
}

func (t *Tour) Finished() bool {
	return t.Status != TourRunning
}
