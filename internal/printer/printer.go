// Package printer renders studio API results for the command line.
package printer

import (
	"fmt"
	"io"
	"time"

	"github.com/phrazzld/studio-api/internal/api"
	"github.com/phrazzld/studio-api/internal/domain"
	"github.com/phrazzld/studio-api/internal/events"
	"github.com/phrazzld/studio-api/internal/feed"
	"github.com/phrazzld/studio-api/internal/mode"
)

// Output formats
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Formats lists the supported output formats.
var Formats = []string{FormatTable, FormatJSON, FormatYAML}

// Printer knows how to print studio data in one format.
type Printer interface {
	PrintTasks(tasks []api.TaskResponse) error
	PrintTask(task api.TaskResponse) error
	PrintSeed(seed domain.Seed) error
	PrintFeed(groups []feed.DateGroup) error
	PrintViews(modes []mode.Mode) error
	PrintEvent(event events.TaskEvent) error
	PrintMessage(msg string) error
}

// New returns the printer for format.
func New(format string, w io.Writer) (Printer, error) {
	switch format {
	case FormatTable, "":
		return NewTablePrinter(w), nil
	case FormatJSON:
		return NewStructuredPrinter(w, encodeJSON), nil
	case FormatYAML:
		return NewStructuredPrinter(w, encodeYAML), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// taskItem is a task without its image payloads, which are too large to print.
type taskItem struct {
	ID          string    `json:"id"`
	View        string    `json:"view"`
	Status      string    `json:"status"`
	RetryCount  int       `json:"retry_count"`
	BatchID     string    `json:"batch_id,omitempty"`
	Prompt      string    `json:"prompt"`
	Error       string    `json:"error,omitempty"`
	InputImages int       `json:"input_images"`
	HasOutput   bool      `json:"has_output"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toTaskItem(t api.TaskResponse) taskItem {
	return taskItem{
		ID:          t.ID,
		View:        t.View,
		Status:      t.Status,
		RetryCount:  t.RetryCount,
		BatchID:     t.BatchID,
		Prompt:      t.Prompt,
		Error:       t.Error,
		InputImages: len(t.InputImages),
		HasOutput:   t.OutputImage != "",
		CreatedAt:   t.CreatedAt.UTC(),
		UpdatedAt:   t.Timestamp.UTC(),
	}
}

func domainTaskItem(t domain.Task) taskItem {
	item := toTaskItem(api.TaskResponse{
		ID:          t.ID,
		Prompt:      t.Prompt,
		Status:      string(t.Status),
		Error:       t.Error,
		RetryCount:  t.RetryCount,
		View:        string(t.View),
		BatchID:     t.BatchID,
		OutputImage: string(t.OutputImage),
		Timestamp:   t.Timestamp,
		CreatedAt:   t.CreatedAt,
	})
	item.InputImages = len(t.InputImages)
	return item
}

type batchItem struct {
	BatchID string     `json:"batch_id,omitempty"`
	Status  string     `json:"status"`
	Tasks   []taskItem `json:"tasks"`
}

type dateItem struct {
	Label  string      `json:"label"`
	Date   string      `json:"date"`
	Groups []batchItem `json:"groups"`
}

func toDateItems(groups []feed.DateGroup) []dateItem {
	out := make([]dateItem, len(groups))
	for i, g := range groups {
		batches := make([]batchItem, len(g.Groups))
		for j, b := range g.Groups {
			tasks := make([]taskItem, len(b.Tasks))
			for k, t := range b.Tasks {
				tasks[k] = domainTaskItem(t)
			}
			batches[j] = batchItem{BatchID: b.BatchID, Status: string(b.Status), Tasks: tasks}
		}
		out[i] = dateItem{Label: g.Label, Date: g.Date, Groups: batches}
	}
	return out
}

type seedItem struct {
	View        string   `json:"view"`
	Prompt      string   `json:"prompt"`
	InputImages []string `json:"input_images"`
}

// toSeedItem keeps only the MIME type and size of each image.
func toSeedItem(seed domain.Seed) seedItem {
	images := make([]string, len(seed.InputImages))
	for i, ref := range seed.InputImages {
		images[i] = describeImage(ref)
	}
	return seedItem{View: string(seed.View), Prompt: seed.Prompt, InputImages: images}
}

func describeImage(ref domain.ImageRef) string {
	mimeType, data, err := domain.ParseImageRef(ref)
	if err != nil {
		return "invalid image"
	}
	return fmt.Sprintf("%s (%d bytes)", mimeType, len(data))
}
