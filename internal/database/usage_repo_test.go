package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdimtricp/tourvision/internal/models"
)

func TestUsageRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUsageRepository(db)
	ctx := context.Background()

	now := time.Now()
	rows := []*models.APIUsage{
		{PropertyCode: "005", Process: "Image Classification (1.jpg)", Model: "gemini-2.0-flash", Elapsed: 812 * time.Millisecond, PromptTokens: 300, CandidateTokens: 2, TotalTokens: 302, CreatedAt: now.Add(-2 * time.Second)},
		{PropertyCode: "005", Process: "Image Classification (2.jpg)", Model: "gemini-2.0-flash", Elapsed: 640 * time.Millisecond, PromptTokens: 280, CandidateTokens: 3, TotalTokens: 283, CreatedAt: now.Add(-time.Second)},
		{PropertyCode: "005", Process: "Video Generation (lobby)", Model: "veo-3.1-fast-generate-preview", Elapsed: 95 * time.Second, CreatedAt: now},
	}
	for _, u := range rows {
		require.NoError(t, repo.Insert(ctx, u))
		assert.NotZero(t, u.ID)
	}

	recent, err := repo.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "Video Generation (lobby)", recent[0].Process)
	assert.Equal(t, 95*time.Second, recent[0].Elapsed)
	assert.Equal(t, "Image Classification (2.jpg)", recent[1].Process)

	totals, err := repo.TotalsByModel(ctx)
	require.NoError(t, err)
	require.Len(t, totals, 2)

	assert.Equal(t, "gemini-2.0-flash", totals[0].Model)
	assert.EqualValues(t, 2, totals[0].Calls)
	assert.EqualValues(t, 580, totals[0].PromptTokens)
	assert.EqualValues(t, 5, totals[0].CandidateTokens)
	assert.EqualValues(t, 585, totals[0].TotalTokens)

	assert.Equal(t, "veo-3.1-fast-generate-preview", totals[1].Model)
	assert.EqualValues(t, 1, totals[1].Calls)
	assert.Zero(t, totals[1].TotalTokens)
}
