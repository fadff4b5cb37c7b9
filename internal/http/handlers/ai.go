package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"runwayproxy/internal/jobs"
	"runwayproxy/internal/providers/runway"
)

// emptyOutputError is returned when the upstream reports success but hands
// back no result URL. Treated as a domain failure, not a transport error.
const emptyOutputError = "Task succeeded but output was empty."

const maxUploadBytes = 32 << 20

type actionRequest struct {
	Action      string `json:"action"`
	Prompt      string `json:"prompt"`
	Ratio       string `json:"ratio"`
	VideoPrompt string `json:"videoPrompt"`
	ImageURL    string `json:"imageUrl"`
	Duration    int    `json:"duration"`
	TaskID      string `json:"taskId"`
}

// AI is the single proxy endpoint. Dispatch is by content type: multipart
// bodies are image-conditioned submissions, JSON bodies carry an action.
func (a *App) AI(w http.ResponseWriter, r *http.Request) {
	contentType := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(contentType, "multipart/form-data"):
		a.handleUpload(w, r)
	case strings.HasPrefix(contentType, "application/json"):
		a.handleAction(w, r)
	default:
		a.fail(w, "Invalid content-type")
	}
}

func (a *App) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		a.fail(w, "Invalid multipart body")
		return
	}
	prompt := strings.TrimSpace(r.FormValue("prompt"))
	if prompt == "" {
		a.fail(w, "Missing prompt")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		a.fail(w, "Missing image file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		a.fail(w, "Failed to read image file")
		return
	}
	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)

	duration := 0
	if v := r.FormValue("duration"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			duration = n
		}
	}

	taskID, err := a.Upstream.SubmitImageToVideo(r.Context(), runway.ImageToVideoRequest{
		PromptImage: dataURL,
		PromptText:  prompt,
		Duration:    duration,
		Ratio:       r.FormValue("ratio"),
	})
	if err != nil {
		a.fail(w, err.Error())
		return
	}
	a.saveKind(r.Context(), taskID, jobs.KindVideo)
	a.json(w, http.StatusOK, map[string]any{"success": true, "taskId": taskID})
}

func (a *App) handleAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.fail(w, "Invalid JSON body")
		return
	}

	switch req.Action {
	case "generateImage":
		if strings.TrimSpace(req.Prompt) == "" {
			a.fail(w, "Missing prompt")
			return
		}
		taskID, err := a.Upstream.SubmitTextToImage(r.Context(), runway.TextToImageRequest{
			PromptText: req.Prompt,
			Ratio:      req.Ratio,
		})
		if err != nil {
			a.fail(w, err.Error())
			return
		}
		a.saveKind(r.Context(), taskID, jobs.KindImage)
		a.json(w, http.StatusOK, map[string]any{"success": true, "taskId": taskID})

	case "startVideoFromUrl":
		if strings.TrimSpace(req.VideoPrompt) == "" || strings.TrimSpace(req.ImageURL) == "" {
			a.fail(w, "Missing videoPrompt or imageUrl")
			return
		}
		taskID, err := a.Upstream.SubmitImageToVideo(r.Context(), runway.ImageToVideoRequest{
			PromptImage: req.ImageURL,
			PromptText:  req.VideoPrompt,
			Duration:    req.Duration,
			Ratio:       req.Ratio,
		})
		if err != nil {
			a.fail(w, err.Error())
			return
		}
		a.saveKind(r.Context(), taskID, jobs.KindVideo)
		a.json(w, http.StatusOK, map[string]any{"success": true, "taskId": taskID})

	case "status":
		if strings.TrimSpace(req.TaskID) == "" {
			a.fail(w, "Missing taskId")
			return
		}
		a.handleStatus(w, r, req.TaskID)

	default:
		a.fail(w, "Invalid action")
	}
}

func (a *App) handleStatus(w http.ResponseWriter, r *http.Request, taskID string) {
	status, err := a.Upstream.TaskStatus(r.Context(), taskID)
	if err != nil {
		a.fail(w, err.Error())
		return
	}

	if status.State == runway.StateSucceeded {
		if len(status.Output) == 0 || status.Output[0] == "" {
			a.json(w, http.StatusInternalServerError, map[string]any{
				"success": false,
				"status":  "FAILED",
				"error":   emptyOutputError,
			})
			return
		}
		kind := a.lookupKind(r.Context(), taskID)
		a.scheduleCleanup(taskID)
		resp := map[string]any{
			"success":  true,
			"status":   status.Status,
			"progress": status.Progress,
		}
		resp[kind.URLField()] = status.Output[0]
		a.json(w, http.StatusOK, resp)
		return
	}

	// Non-terminal statuses and upstream failures are relayed as-is; the
	// failure reason rides along so the client can show it.
	resp := map[string]any{
		"success":  true,
		"status":   status.Status,
		"progress": status.Progress,
	}
	if status.Failure != "" {
		resp["error"] = status.Failure
	}
	a.json(w, http.StatusOK, resp)
}

func (a *App) saveKind(ctx context.Context, taskID string, kind jobs.Kind) {
	if err := a.Store.Put(ctx, taskID, jobs.Record{Kind: kind}); err != nil {
		a.Logger.Warn().Err(err).Str("task_id", taskID).Msg("job metadata write failed")
	}
}

func (a *App) lookupKind(ctx context.Context, taskID string) jobs.Kind {
	rec, ok, err := a.Store.Get(ctx, taskID)
	if err != nil {
		a.Logger.Warn().Err(err).Str("task_id", taskID).Msg("job metadata read failed")
		return jobs.DefaultKind
	}
	if !ok || rec.Kind == "" {
		return jobs.DefaultKind
	}
	return rec.Kind
}

// scheduleCleanup removes the metadata record after a terminal status has
// been relayed. Best-effort: it must not delay the response.
func (a *App) scheduleCleanup(taskID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Store.Delete(ctx, taskID); err != nil {
			a.Logger.Warn().Err(err).Str("task_id", taskID).Msg("job metadata delete failed")
		}
	}()
}
