package printer

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/phrazzld/studio-api/internal/api"
	"github.com/phrazzld/studio-api/internal/domain"
	"github.com/phrazzld/studio-api/internal/events"
	"github.com/phrazzld/studio-api/internal/feed"
	"github.com/phrazzld/studio-api/internal/mode"
	"gopkg.in/yaml.v3"
)

type encodeFunc func(w io.Writer, v interface{}) error

// StructuredPrinter prints data as JSON or YAML documents.
type StructuredPrinter struct {
	writer io.Writer
	encode encodeFunc
}

// NewStructuredPrinter creates a printer using encode for every document.
func NewStructuredPrinter(w io.Writer, encode encodeFunc) *StructuredPrinter {
	return &StructuredPrinter{writer: w, encode: encode}
}

// PrintTasks prints tasks without image payloads.
func (p *StructuredPrinter) PrintTasks(tasks []api.TaskResponse) error {
	items := make([]taskItem, len(tasks))
	for i, t := range tasks {
		items[i] = toTaskItem(t)
	}
	return p.encode(p.writer, items)
}

// PrintTask prints one task without image payloads.
func (p *StructuredPrinter) PrintTask(task api.TaskResponse) error {
	return p.encode(p.writer, toTaskItem(task))
}

// PrintSeed prints a seed with its images summarized.
func (p *StructuredPrinter) PrintSeed(seed domain.Seed) error {
	return p.encode(p.writer, toSeedItem(seed))
}

// PrintFeed prints the feed groups.
func (p *StructuredPrinter) PrintFeed(groups []feed.DateGroup) error {
	return p.encode(p.writer, toDateItems(groups))
}

// PrintViews prints the generation modes.
func (p *StructuredPrinter) PrintViews(modes []mode.Mode) error {
	return p.encode(p.writer, modes)
}

// PrintEvent prints one task event.
func (p *StructuredPrinter) PrintEvent(event events.TaskEvent) error {
	return p.encode(p.writer, event)
}

// PrintMessage prints a message object.
func (p *StructuredPrinter) PrintMessage(msg string) error {
	return p.encode(p.writer, map[string]string{"message": msg})
}

func encodeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// encodeYAML goes through JSON first so YAML keys match the json tags.
func encodeYAML(w io.Writer, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode value: %w", err)
	}
	var doc interface{}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return fmt.Errorf("failed to convert value: %w", err)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}
