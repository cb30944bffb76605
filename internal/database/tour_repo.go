package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kdimtricp/tourvision/internal/models"
)

type TourRepository struct {
	db *DB
}

func NewTourRepository(db *DB) *TourRepository {
	return &TourRepository{db: db}
}

func (r *TourRepository) Create(ctx context.Context, tour *models.Tour) error {
	query := `
		INSERT INTO tours (
			id, property_code, status, scene_count, clip_duration,
			final_path, error, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.conn.ExecContext(ctx, query,
		tour.ID, tour.PropertyCode, string(tour.Status), tour.SceneCount, tour.ClipDuration,
		tour.FinalPath, tour.Error, tour.StartedAt.UTC(), nullTime(tour.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert tour: %w", err)
	}
	return nil
}

// Update persists the mutable run fields.
func (r *TourRepository) Update(ctx context.Context, tour *models.Tour) error {
	query := `
		UPDATE tours SET
			status = ?, scene_count = ?, clip_duration = ?,
			final_path = ?, error = ?, finished_at = ?
		WHERE id = ?`

	res, err := r.db.conn.ExecContext(ctx, query,
		string(tour.Status), tour.SceneCount, tour.ClipDuration,
		tour.FinalPath, tour.Error, nullTime(tour.FinishedAt), tour.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update tour: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("tour %s: %w", tour.ID, ErrNotFound)
	}
	return nil
}

func (r *TourRepository) GetByID(ctx context.Context, id string) (*models.Tour, error) {
	query := `
		SELECT id, property_code, status, scene_count, clip_duration,
			final_path, error, started_at, finished_at
		FROM tours WHERE id = ?`

	tour, err := scanTour(r.db.conn.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("tour %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get tour: %w", err)
	}
	return tour, nil
}

// List returns the most recent tours first.
func (r *TourRepository) List(ctx context.Context, limit int) ([]models.Tour, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, property_code, status, scene_count, clip_duration,
			final_path, error, started_at, finished_at
		FROM tours ORDER BY started_at DESC LIMIT ?`

	rows, err := r.db.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list tours: %w", err)
	}
	defer rows.Close()

	tours := []models.Tour{}
	for rows.Next() {
		tour, err := scanTour(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tour: %w", err)
		}
		tours = append(tours, *tour)
	}

	return tours, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTour(row rowScanner) (*models.Tour, error) {
	var tour models.Tour
	var status string
	var finished sql.NullTime

	err := row.Scan(
		&tour.ID, &tour.PropertyCode, &status, &tour.SceneCount, &tour.ClipDuration,
		&tour.FinalPath, &tour.Error, &tour.StartedAt, &finished,
	)
	if err != nil {
		return nil, err
	}

	tour.Status = models.TourStatus(status)
	if finished.Valid {
		t := finished.Time
		tour.FinishedAt = &t
	}
	return &tour, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
