package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/studio-api/internal/api/shared"
	"github.com/phrazzld/studio-api/internal/domain"
	"github.com/phrazzld/studio-api/internal/platform/logger"
	"github.com/phrazzld/studio-api/internal/service"
)

// ErrNoOutputImage is returned when an image is requested for a task that
// has not completed.
var ErrNoOutputImage = errors.New("task has no output image")

// TaskHandler handles generation task HTTP requests.
type TaskHandler struct {
	studioService service.StudioService
	logger        *slog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(studioService service.StudioService, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{
		studioService: studioService,
		logger:        logger.With("component", "task_handler"),
	}
}

// Routes registers the task endpoints on r.
func (h *TaskHandler) Routes(r chi.Router) {
	r.Post("/tasks", h.SubmitTask)
	r.Get("/tasks", h.ListTasks)
	r.Get("/tasks/{id}", h.GetTask)
	r.Post("/tasks/{id}/rerun", h.RerunTask)
	r.Get("/tasks/{id}/seed", h.SeedTask)
	r.Get("/tasks/{id}/image", h.DownloadImage)
	r.Get("/feed", h.Feed)
	r.Get("/views", h.ListViews)
}

// SubmitTask handles POST /api/tasks. The response is sent once the task or
// batch is stored; generation continues in the background.
func (h *TaskHandler) SubmitTask(w http.ResponseWriter, r *http.Request) {
	var req SubmitTaskRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		h.respondWithServiceError(w, r, fmt.Errorf("%w: %w", domain.ErrInvalidSubmission, err))
		return
	}

	if err := h.studioService.Submit(r.Context(), req.toInput()); err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusAccepted, accepted)
}

// ListTasks handles GET /api/tasks, optionally filtered by ?view=.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.studioService.ListTasks(r.Context(), domain.View(r.URL.Query().Get("view")))
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, tasksToResponse(tasks))
}

// GetTask handles GET /api/tasks/{id}.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	t, err := h.studioService.GetTask(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(t))
}

// RerunTask handles POST /api/tasks/{id}/rerun.
func (h *TaskHandler) RerunTask(w http.ResponseWriter, r *http.Request) {
	if err := h.studioService.Rerun(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusAccepted, accepted)
}

// SeedTask handles GET /api/tasks/{id}/seed.
func (h *TaskHandler) SeedTask(w http.ResponseWriter, r *http.Request) {
	seed, err := h.studioService.Seed(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, seed)
}

// DownloadImage handles GET /api/tasks/{id}/image, serving the decoded
// output image as an attachment.
func (h *TaskHandler) DownloadImage(w http.ResponseWriter, r *http.Request) {
	t, err := h.studioService.GetTask(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	if t.Status != domain.TaskStatusCompleted || t.OutputImage == "" {
		h.respondWithServiceError(w, r, fmt.Errorf("%w: task %s is %s", ErrNoOutputImage, t.ID, t.Status))
		return
	}

	mimeType, data, err := domain.ParseImageRef(t.OutputImage)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Stored image is corrupt", err)
		return
	}

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", DownloadFilename(t.Prompt, mimeType)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logger.FromContextOrDefault(r.Context(), h.logger).Warn("failed to write image", "task_id", t.ID, "error", err)
	}
}

// Feed handles GET /api/feed?view=.
func (h *TaskHandler) Feed(w http.ResponseWriter, r *http.Request) {
	groups, err := h.studioService.Feed(r.Context(), domain.View(r.URL.Query().Get("view")))
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, groups)
}

// ListViews handles GET /api/views.
func (h *TaskHandler) ListViews(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.studioService.Modes())
}

func (h *TaskHandler) respondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
}
