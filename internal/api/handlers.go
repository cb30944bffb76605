package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kdimtricp/tourvision/internal/database"
	"github.com/kdimtricp/tourvision/internal/models"
	"github.com/kdimtricp/tourvision/internal/storage"
	"github.com/kdimtricp/tourvision/internal/tour"
)

type TourRunner interface {
	Start(ctx context.Context, propertyCode string) (*models.Tour, error)
	Running() bool
}

type TourReader interface {
	GetByID(ctx context.Context, id string) (*models.Tour, error)
	List(ctx context.Context, limit int) ([]models.Tour, error)
}

type ClipReader interface {
	ListByTour(ctx context.Context, tourID string) ([]models.Clip, error)
	GetByLabel(ctx context.Context, tourID, label string) (*models.Clip, error)
}

type UsageReader interface {
	Recent(ctx context.Context, limit int) ([]models.APIUsage, error)
	TotalsByModel(ctx context.Context) ([]models.ModelTotals, error)
}

type App struct {
	Tours   TourReader
	Clips   ClipReader
	Usage   UsageReader
	Runner  TourRunner
	Metrics http.Handler
	Logger  *zap.Logger

	DefaultProperty string
	// RunContext outlives the request that started a run.
	RunContext    context.Context
	EventInterval time.Duration
}

func (app *App) logger() *zap.Logger {
	if app.Logger == nil {
		return zap.NewNop()
	}
	return app.Logger
}

func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}

func (app *App) ListToursHandler(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	tours, err := app.Tours.List(r.Context(), limit)
	if err != nil {
		app.serverError(w, "failed to list tours", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tours":   tours,
		"running": app.Runner != nil && app.Runner.Running(),
	})
}

func (app *App) GetTourHandler(w http.ResponseWriter, r *http.Request) {
	t, ok := app.loadTour(w, r)
	if !ok {
		return
	}

	clips, err := app.Clips.ListByTour(r.Context(), t.ID)
	if err != nil {
		app.serverError(w, "failed to load clips", err)
		return
	}
	t.Clips = clips

	writeJSON(w, http.StatusOK, t)
}

type startTourRequest struct {
	PropertyCode string `json:"property_code"`
}

func (app *App) StartTourHandler(w http.ResponseWriter, r *http.Request) {
	if app.Runner == nil {
		writeError(w, http.StatusServiceUnavailable, "tour runs are disabled")
		return
	}

	var req startTourRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	code := strings.TrimSpace(req.PropertyCode)
	if code == "" {
		code = app.DefaultProperty
	}
	if code == "" || strings.ContainsAny(code, `/\`) || strings.Contains(code, "..") {
		writeError(w, http.StatusBadRequest, "invalid property_code")
		return
	}

	ctx := app.RunContext
	if ctx == nil {
		ctx = context.Background()
	}

	t, err := app.Runner.Start(ctx, code)
	if err != nil {
		if errors.Is(err, tour.ErrBusy) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		app.serverError(w, "failed to start tour", err)
		return
	}

	w.Header().Set("Location", "/tours/"+t.ID)
	writeJSON(w, http.StatusAccepted, t)
}

// TourEventsHandler streams the tour as server-sent events until it finishes
// or the client disconnects.
func (app *App) TourEventsHandler(w http.ResponseWriter, r *http.Request) {
	t, ok := app.loadTour(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	interval := app.EventInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	clientGone := r.Context().Done()
	lastStatus := models.TourStatus("")

	for {
		if t.Status != lastStatus {
			data, err := json.Marshal(t)
			if err != nil {
				app.logger().Warn("failed to marshal tour event", zap.Error(err))
				return
			}
			fmt.Fprintf(w, "event: status\ndata: %s\n\n", data)
			flusher.Flush()
			lastStatus = t.Status
		}
		if t.Finished() {
			return
		}

		select {
		case <-clientGone:
			return
		case <-ticker.C:
		}

		next, err := app.Tours.GetByID(r.Context(), t.ID)
		if err != nil {
			app.logger().Warn("failed to refresh tour", zap.String("tour_id", t.ID), zap.Error(err))
			return
		}
		t = next
	}
}

func (app *App) StreamTourVideoHandler(w http.ResponseWriter, r *http.Request) {
	t, ok := app.loadTour(w, r)
	if !ok {
		return
	}
	if t.FinalPath == "" {
		writeError(w, http.StatusNotFound, "tour has no final video")
		return
	}

	app.serveArtifact(w, r, t.FinalPath)
}

func (app *App) StreamClipHandler(w http.ResponseWriter, r *http.Request) {
	tourID := chi.URLParam(r, "id")
	label := chi.URLParam(r, "label")

	clip, err := app.Clips.GetByLabel(r.Context(), tourID, label)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "clip not found")
			return
		}
		app.serverError(w, "failed to load clip", err)
		return
	}
	if clip.Path == "" {
		writeError(w, http.StatusNotFound, "clip was not generated")
		return
	}

	app.serveArtifact(w, r, clip.Path)
}

func (app *App) UsageHandler(w http.ResponseWriter, r *http.Request) {
	if app.Usage == nil {
		writeError(w, http.StatusServiceUnavailable, "usage ledger unavailable")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	recent, err := app.Usage.Recent(r.Context(), limit)
	if err != nil {
		app.serverError(w, "failed to load usage", err)
		return
	}
	totals, err := app.Usage.TotalsByModel(r.Context())
	if err != nil {
		app.serverError(w, "failed to load usage totals", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"recent": recent,
		"totals": totals,
	})
}

func (app *App) loadTour(w http.ResponseWriter, r *http.Request) (*models.Tour, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.NotFound(w, r)
		return nil, false
	}

	t, err := app.Tours.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "tour not found")
			return nil, false
		}
		app.serverError(w, "failed to load tour", err)
		return nil, false
	}
	return t, true
}

func (app *App) serveArtifact(w http.ResponseWriter, r *http.Request, path string) {
	file, err := storage.Open(path)
	if err != nil {
		writeError(w, http.StatusNotFound, "video file not found")
		return
	}
	defer file.Close()

	stat, err := file.(interface{ Stat() (os.FileInfo, error) }).Stat()
	if err != nil {
		app.serverError(w, "error accessing video file", err)
		return
	}

	w.Header().Set("Content-Type", "video/mp4")

	// ServeContent answers Range requests with 206 Partial Content
	http.ServeContent(w, r, filepath.Base(path), stat.ModTime(), file)
}

func (app *App) serverError(w http.ResponseWriter, msg string, err error) {
	app.logger().Error(msg, zap.Error(err))
	writeError(w, http.StatusInternalServerError, msg)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
