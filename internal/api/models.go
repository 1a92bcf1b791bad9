package api

import (
	"time"

	"github.com/phrazzld/studio-api/internal/domain"
	"github.com/phrazzld/studio-api/internal/service"
)

// SubmitTaskRequest is the body of POST /api/tasks.
type SubmitTaskRequest struct {
	View    string            `json:"view" validate:"required"`
	Prompt  string            `json:"prompt"`
	Images  []string          `json:"images,omitempty"`
	FanOut  bool              `json:"fan_out"`
	Options map[string]string `json:"options,omitempty"`
}

func (r SubmitTaskRequest) toInput() service.SubmitInput {
	return service.SubmitInput{
		View:    r.View,
		Prompt:  r.Prompt,
		Images:  r.Images,
		FanOut:  r.FanOut,
		Options: r.Options,
	}
}

// AcceptedResponse acknowledges a submission or rerun. Generation happens
// in the background; clients follow progress through the task list or the
// event stream.
type AcceptedResponse struct {
	Status string `json:"status"`
}

var accepted = AcceptedResponse{Status: "accepted"}

// TaskResponse is the API representation of a task.
type TaskResponse struct {
	ID          string    `json:"id"`
	Prompt      string    `json:"prompt"`
	InputImages []string  `json:"input_images"`
	OutputImage string    `json:"output_image,omitempty"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	RetryCount  int       `json:"retry_count"`
	View        string    `json:"view"`
	BatchID     string    `json:"batch_id,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	CreatedAt   time.Time `json:"created_at"`
}

func taskToResponse(t domain.Task) TaskResponse {
	images := make([]string, len(t.InputImages))
	for i, img := range t.InputImages {
		images[i] = string(img)
	}
	return TaskResponse{
		ID:          t.ID,
		Prompt:      t.Prompt,
		InputImages: images,
		OutputImage: string(t.OutputImage),
		Status:      string(t.Status),
		Error:       t.Error,
		RetryCount:  t.RetryCount,
		View:        string(t.View),
		BatchID:     t.BatchID,
		Timestamp:   t.Timestamp,
		CreatedAt:   t.CreatedAt,
	}
}

func tasksToResponse(tasks []domain.Task) []TaskResponse {
	out := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		out[i] = taskToResponse(t)
	}
	return out
}
