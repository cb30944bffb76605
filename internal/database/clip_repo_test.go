package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdimtricp/tourvision/internal/models"
)

func TestClipRepository(t *testing.T) {
	db := setupTestDB(t)
	tours := NewTourRepository(db)
	clips := NewClipRepository(db)
	ctx := context.Background()

	tour := models.NewTour("005")
	require.NoError(t, tours.Create(ctx, tour))

	lobby := models.NewClip(tour.ID, "lobby", 1, models.ClipPan)
	lobby.Status = models.ClipGenerated
	lobby.Path = "005_lobby.mp4"

	kitchen := models.NewClip(tour.ID, "kitchen", 4, models.ClipBridge)
	kitchen.Status = models.ClipFailed
	kitchen.Error = "operation finished without videos"

	require.NoError(t, clips.Create(ctx, lobby))
	require.NoError(t, clips.Create(ctx, kitchen))

	list, err := clips.ListByTour(ctx, tour.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "lobby", list[0].Label)
	assert.Equal(t, models.ClipPan, list[0].Mode)
	assert.Equal(t, models.ClipBridge, list[1].Mode)
	assert.Equal(t, models.ClipFailed, list[1].Status)
	assert.Equal(t, "operation finished without videos", list[1].Error)

	got, err := clips.GetByLabel(ctx, tour.ID, "lobby")
	require.NoError(t, err)
	assert.Equal(t, "005_lobby.mp4", got.Path)

	_, err = clips.GetByLabel(ctx, tour.ID, "garage")
	assert.ErrorIs(t, err, ErrNotFound)

	empty, err := clips.ListByTour(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestClipRepository_RequiresTour(t *testing.T) {
	db := setupTestDB(t)
	clips := NewClipRepository(db)

	err := clips.Create(context.Background(), models.NewClip("no-such-tour", "lobby", 1, models.ClipPan))
	require.Error(t, err)
}
