package tour

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kdimtricp/tourvision/internal/models"
	"github.com/kdimtricp/tourvision/internal/storage"
)

func newTestGenerator(content *fakeContent, video *fakeVideo) *Generator {
	return NewGenerator(content, video, GeneratorConfig{
		VisionModel:  "gemini-2.0-flash",
		VideoModel:   "veo-3.1-fast-generate-preview",
		PollInterval: time.Millisecond,
	}, zap.NewNop())
}

func groupFrom(t *testing.T, dir, label string, names ...string) SceneGroup {
	t.Helper()
	writeImages(t, dir, names...)
	group := SceneGroup{Label: label}
	for _, n := range names {
		group.Images = append(group.Images, Image{Name: n, Path: filepath.Join(dir, n)})
	}
	return group
}

func TestGenerator_SingleImagePan(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(filepath.Join(dir, "out"))
	require.NoError(t, err)

	content := &fakeContent{}
	video := &fakeVideo{}
	rec := &captureRecorder{}

	clip, err := newTestGenerator(content, video).Generate(context.Background(), ClipJob{
		PropertyCode: "005",
		Group:        groupFrom(t, dir, "lobby", "7.jpg"),
		Store:        store,
		Usage:        rec,
	})
	require.NoError(t, err)

	assert.Equal(t, models.ClipPan, clip.Mode)
	assert.Equal(t, filepath.Join(dir, "out", "005_lobby.mp4"), clip.Path)

	data, err := os.ReadFile(clip.Path)
	require.NoError(t, err)
	assert.Equal(t, "mp4:operations/1", string(data))

	assert.Empty(t, content.calls, "no selection call for a single image")
	require.Len(t, video.requests, 1)
	req := video.requests[0]
	assert.Equal(t, "A smooth horizontal panorama pan of this lobby.", req.Prompt)
	assert.Nil(t, req.LastFrame)
	assert.Equal(t, "image/jpeg", req.Image.MIMEType)
	assert.Equal(t, "veo-3.1-fast-generate-preview", req.Model)
	assert.Equal(t, "16:9", req.AspectRatio)

	require.Len(t, rec.calls, 1)
	assert.Equal(t, "Video Generation (lobby)", rec.calls[0].Process)
	assert.Equal(t, "veo-3.1-fast-generate-preview", rec.calls[0].Model)
}

func TestGenerator_PairSelection(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(filepath.Join(dir, "out"))
	require.NoError(t, err)

	content := &fakeContent{selection: "```json\n[\"3.jpg\", \"1.jpg\"]\n```"}
	video := &fakeVideo{}
	rec := &captureRecorder{}

	clip, err := newTestGenerator(content, video).Generate(context.Background(), ClipJob{
		PropertyCode: "005",
		Group:        groupFrom(t, dir, "kitchen", "1.jpg", "2.jpg", "3.jpg"),
		Store:        store,
		Usage:        rec,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ClipBridge, clip.Mode)

	require.Len(t, content.calls, 1)
	sel := content.calls[0]
	assert.Equal(t, "application/json", sel.ResponseMIMEType)
	require.Len(t, sel.Parts, 4)
	assert.Equal(t, "From ['1.jpg', '2.jpg', '3.jpg'], select two images for 'kitchen'. Return ONLY JSON list.", sel.Parts[3].Text)

	require.Len(t, video.requests, 1)
	req := video.requests[0]
	assert.Equal(t, "Accurate bridge between frames for kitchen.", req.Prompt)
	require.NotNil(t, req.LastFrame)

	require.Len(t, rec.calls, 2)
	assert.Equal(t, "Image Selection (kitchen)", rec.calls[0].Process)
	assert.Equal(t, 910, rec.calls[0].Usage.TotalTokens)
	assert.Equal(t, "Video Generation (kitchen)", rec.calls[1].Process)
}

func TestGenerator_NoVideos(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(filepath.Join(dir, "out"))
	require.NoError(t, err)

	_, err = newTestGenerator(&fakeContent{}, &fakeVideo{noVideos: true}).Generate(context.Background(), ClipJob{
		PropertyCode: "005",
		Group:        groupFrom(t, dir, "garage", "1.jpg"),
		Store:        store,
	})
	require.ErrorIs(t, err, ErrNoVideos)

	_, statErr := os.Stat(filepath.Join(dir, "out", "005_garage.mp4"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestSelectPair(t *testing.T) {
	images := []Image{{Name: "a.jpg"}, {Name: "b.jpg"}, {Name: "c.jpg"}}

	tests := []struct {
		name       string
		answer     string
		wantFirst  string
		wantSecond string
		wantOK     bool
	}{
		{"valid", `["c.jpg", "a.jpg"]`, "c.jpg", "a.jpg", true},
		{"fenced", "```json\n[\"b.jpg\",\"c.jpg\"]\n```", "b.jpg", "c.jpg", true},
		{"not json", "I would pick b and c", "a.jpg", "b.jpg", false},
		{"one entry", `["c.jpg"]`, "a.jpg", "b.jpg", false},
		{"three entries", `["a.jpg","b.jpg","c.jpg"]`, "a.jpg", "b.jpg", false},
		{"unknown file", `["c.jpg","z.jpg"]`, "a.jpg", "b.jpg", false},
		{"object", `{"first":"c.jpg"}`, "a.jpg", "b.jpg", false},
		{"empty", "", "a.jpg", "b.jpg", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, second, ok := SelectPair(tt.answer, images)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantFirst, first.Name)
			assert.Equal(t, tt.wantSecond, second.Name)
		})
	}
}

func TestModeFor(t *testing.T) {
	assert.Equal(t, models.ClipPan, ModeFor(SceneGroup{Images: []Image{{Name: "1.jpg"}}}))
	assert.Equal(t, models.ClipBridge, ModeFor(SceneGroup{Images: []Image{{Name: "1.jpg"}, {Name: "2.jpg"}}}))
}
