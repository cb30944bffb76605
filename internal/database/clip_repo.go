package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kdimtricp/tourvision/internal/models"
)

type ClipRepository struct {
	db *DB
}

func NewClipRepository(db *DB) *ClipRepository {
	return &ClipRepository{db: db}
}

func (r *ClipRepository) Create(ctx context.Context, clip *models.Clip) error {
	query := `
		INSERT INTO clips (
			id, tour_id, label, image_count, mode, path, status, error, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.conn.ExecContext(ctx, query,
		clip.ID, clip.TourID, clip.Label, clip.ImageCount, string(clip.Mode),
		clip.Path, string(clip.Status), clip.Error, clip.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert clip: %w", err)
	}
	return nil
}

func (r *ClipRepository) ListByTour(ctx context.Context, tourID string) ([]models.Clip, error) {
	query := `
		SELECT id, tour_id, label, image_count, mode, path, status, error, created_at
		FROM clips WHERE tour_id = ? ORDER BY created_at ASC, rowid ASC`

	rows, err := r.db.conn.QueryContext(ctx, query, tourID)
	if err != nil {
		return nil, fmt.Errorf("failed to list clips: %w", err)
	}
	defer rows.Close()

	clips := []models.Clip{}
	for rows.Next() {
		clip, err := scanClip(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan clip: %w", err)
		}
		clips = append(clips, *clip)
	}

	return clips, rows.Err()
}

// GetByLabel returns the latest clip generated for label within a tour.
func (r *ClipRepository) GetByLabel(ctx context.Context, tourID, label string) (*models.Clip, error) {
	query := `
		SELECT id, tour_id, label, image_count, mode, path, status, error, created_at
		FROM clips WHERE tour_id = ? AND label = ?
		ORDER BY created_at DESC, rowid DESC LIMIT 1`

	clip, err := scanClip(r.db.conn.QueryRowContext(ctx, query, tourID, label))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("clip %s/%s: %w", tourID, label, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get clip: %w", err)
	}
	return clip, nil
}

func scanClip(row rowScanner) (*models.Clip, error) {
	var clip models.Clip
	var mode, status string

	err := row.Scan(
		&clip.ID, &clip.TourID, &clip.Label, &clip.ImageCount, &mode,
		&clip.Path, &status, &clip.Error, &clip.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	clip.Mode = models.ClipMode(mode)
	clip.Status = models.ClipStatus(status)
	return &clip, nil
}
