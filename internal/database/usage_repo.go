package database

import (
	"context"
	"fmt"
	"time"

	"github.com/kdimtricp/tourvision/internal/models"
)

type UsageRepository struct {
	db *DB
}

func NewUsageRepository(db *DB) *UsageRepository {
	return &UsageRepository{db: db}
}

func (r *UsageRepository) Insert(ctx context.Context, u *models.APIUsage) error {
	query := `
		INSERT INTO api_usage (
			tour_id, property_code, process, model, elapsed_ms,
			prompt_tokens, candidate_tokens, total_tokens, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	res, err := r.db.conn.ExecContext(ctx, query,
		u.TourID, u.PropertyCode, u.Process, u.Model, u.Elapsed.Milliseconds(),
		u.PromptTokens, u.CandidateTokens, u.TotalTokens, u.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert api usage: %w", err)
	}

	if id, err := res.LastInsertId(); err == nil {
		u.ID = id
	}
	return nil
}

// Recent returns the newest usage rows first.
func (r *UsageRepository) Recent(ctx context.Context, limit int) ([]models.APIUsage, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, tour_id, property_code, process, model, elapsed_ms,
			prompt_tokens, candidate_tokens, total_tokens, created_at
		FROM api_usage ORDER BY created_at DESC, id DESC LIMIT ?`

	rows, err := r.db.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query api usage: %w", err)
	}
	defer rows.Close()

	records := []models.APIUsage{}
	for rows.Next() {
		var u models.APIUsage
		var elapsedMS int64
		if err := rows.Scan(
			&u.ID, &u.TourID, &u.PropertyCode, &u.Process, &u.Model, &elapsedMS,
			&u.PromptTokens, &u.CandidateTokens, &u.TotalTokens, &u.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan api usage: %w", err)
		}
		u.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		records = append(records, u)
	}

	return records, rows.Err()
}

func (r *UsageRepository) TotalsByModel(ctx context.Context) ([]models.ModelTotals, error) {
	query := `
		SELECT model, COUNT(*), SUM(prompt_tokens), SUM(candidate_tokens), SUM(total_tokens)
		FROM api_usage GROUP BY model ORDER BY model`

	rows, err := r.db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate api usage: %w", err)
	}
	defer rows.Close()

	totals := []models.ModelTotals{}
	for rows.Next() {
		var t models.ModelTotals
		if err := rows.Scan(&t.Model, &t.Calls, &t.PromptTokens, &t.CandidateTokens, &t.TotalTokens); err != nil {
			return nil, fmt.Errorf("failed to scan usage totals: %w", err)
		}
		totals = append(totals, t)
	}

	return totals, rows.Err()
}
