package printer

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/phrazzld/studio-api/internal/api"
	"github.com/phrazzld/studio-api/internal/domain"
	"github.com/phrazzld/studio-api/internal/events"
	"github.com/phrazzld/studio-api/internal/feed"
	"github.com/phrazzld/studio-api/internal/mode"
)

const maxPromptWidth = 40

// TablePrinter prints data as aligned text tables.
type TablePrinter struct {
	writer io.Writer
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

// PrintTasks prints one task per row.
func (t *TablePrinter) PrintTasks(tasks []api.TaskResponse) error {
	if len(tasks) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tVIEW\tSTATUS\tRETRIES\tBATCH\tCREATED\tPROMPT")
	for _, task := range tasks {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			task.ID,
			task.View,
			task.Status,
			task.RetryCount,
			orDash(task.BatchID),
			formatTime(task.CreatedAt),
			truncate(task.Prompt, maxPromptWidth))
	}
	return tw.Flush()
}

// PrintTask prints the fields of one task.
func (t *TablePrinter) PrintTask(task api.TaskResponse) error {
	item := toTaskItem(task)
	fmt.Fprintf(t.writer, "ID:         %s\n", item.ID)
	fmt.Fprintf(t.writer, "View:       %s\n", item.View)
	fmt.Fprintf(t.writer, "Status:     %s\n", item.Status)
	fmt.Fprintf(t.writer, "Retries:    %d\n", item.RetryCount)
	if item.BatchID != "" {
		fmt.Fprintf(t.writer, "Batch:      %s\n", item.BatchID)
	}
	fmt.Fprintf(t.writer, "Images:     %d\n", item.InputImages)
	fmt.Fprintf(t.writer, "Output:     %t\n", item.HasOutput)
	fmt.Fprintf(t.writer, "Created:    %s\n", formatTime(item.CreatedAt))
	fmt.Fprintf(t.writer, "Updated:    %s\n", formatTime(item.UpdatedAt))
	if item.Error != "" {
		fmt.Fprintf(t.writer, "Error:      %s\n", item.Error)
	}
	fmt.Fprintf(t.writer, "Prompt:     %s\n", item.Prompt)
	return nil
}

// PrintSeed prints the reusable parts of a task.
func (t *TablePrinter) PrintSeed(seed domain.Seed) error {
	item := toSeedItem(seed)
	fmt.Fprintf(t.writer, "View:       %s\n", item.View)
	fmt.Fprintf(t.writer, "Prompt:     %s\n", item.Prompt)
	for i, img := range item.InputImages {
		fmt.Fprintf(t.writer, "Image %d:    %s\n", i+1, img)
	}
	return nil
}

// PrintFeed prints each day as a heading followed by its batches.
func (t *TablePrinter) PrintFeed(groups []feed.DateGroup) error {
	for i, g := range groups {
		if i > 0 {
			fmt.Fprintln(t.writer)
		}
		fmt.Fprintf(t.writer, "%s (%s)\n", g.Label, g.Date)

		tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
		for _, b := range g.Groups {
			ids := make([]string, len(b.Tasks))
			for j, task := range b.Tasks {
				ids[j] = task.ID
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", orDash(b.BatchID), b.Status, strings.Join(ids, ","))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// PrintViews prints the generation modes.
func (t *TablePrinter) PrintViews(modes []mode.Mode) error {
	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VIEW\tTITLE\tIMAGES\tOPTIONS")
	for _, m := range modes {
		images := fmt.Sprintf("%d-%d", m.MinImages, m.MaxImages)
		if m.MinImages == m.MaxImages {
			images = fmt.Sprintf("%d", m.MaxImages)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.View, m.Title, images, orDash(strings.Join(m.Options, ",")))
	}
	return tw.Flush()
}

// PrintEvent prints one event per line.
func (t *TablePrinter) PrintEvent(event events.TaskEvent) error {
	line := fmt.Sprintf("%s  %-12s %s  %s  retries=%d",
		formatTime(event.CreatedAt), event.Type, event.TaskID, event.Status, event.RetryCount)
	if event.Error != "" {
		line += "  error=" + event.Error
	}
	_, err := fmt.Fprintln(t.writer, line)
	return err
}

// PrintMessage prints msg on its own line.
func (t *TablePrinter) PrintMessage(msg string) error {
	_, err := fmt.Fprintln(t.writer, msg)
	return err
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Local().Format("2006-01-02 15:04:05")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
