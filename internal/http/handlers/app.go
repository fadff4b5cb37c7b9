package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"runwayproxy/internal/infra"
	"runwayproxy/internal/jobs"
	"runwayproxy/internal/providers/runway"
)

// Generator is the narrow upstream surface the handlers depend on, so a
// fake can stand in for the real client in tests.
type Generator interface {
	SubmitTextToImage(ctx context.Context, req runway.TextToImageRequest) (string, error)
	SubmitImageToVideo(ctx context.Context, req runway.ImageToVideoRequest) (string, error)
	TaskStatus(ctx context.Context, taskID string) (*runway.TaskStatus, error)
}

type App struct {
	Upstream Generator
	Store    jobs.Store
	Logger   infra.Logger
}

func NewApp(upstream Generator, store jobs.Store, logger infra.Logger) *App {
	if store == nil {
		store = jobs.Disabled{}
	}
	return &App{Upstream: upstream, Store: store, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// fail writes the uniform error envelope. Every failure path, client-caused
// or not, maps to status 500 for compatibility with existing consumers of
// the endpoint.
func (a *App) fail(w http.ResponseWriter, msg string) {
	a.json(w, http.StatusInternalServerError, map[string]any{
		"success": false,
		"error":   msg,
	})
}
