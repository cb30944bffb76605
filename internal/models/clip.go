package models

import (
	"time"

	"github.com/google/uuid"
)

type ClipMode string

const (
	ClipPan    ClipMode = "pan"
	ClipBridge ClipMode = "bridge"
)

type ClipStatus string

const (
	ClipGenerated ClipStatus = "generated"
	ClipFailed    ClipStatus = "failed"
)

// Clip is the outcome of generating video for one scene group.
type Clip struct {
	ID         string     `json:"id"`
	TourID     string     `json:"tour_id"`
	Label      string     `json:"label"`
	ImageCount int        `json:"image_count"`
	Mode       ClipMode   `json:"mode"`
	Path       string     `json:"path,omitempty"`
	Status     ClipStatus `json:"status"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func NewClip(tourID, label string, imageCount int, mode ClipMode) *Clip {
	return &Clip{
		ID:         uuid.New().String(),
		TourID:     tourID,
		Label:      label,
		ImageCount: imageCount,
		Mode:       mode,
		CreatedAt:  time.Now(),
	}
}
