// Package feed groups tasks for display: by calendar day, then by batch.
// Grouping is a pure function of its input and never touches the store.
package feed

import (
	"slices"
	"time"

	"github.com/phrazzld/studio-api/internal/domain"
)

// Date labels for the two most recent days
const (
	LabelToday     = "Today"
	LabelYesterday = "Yesterday"
)

// DateLayout formats labels for days before yesterday.
const DateLayout = "January 2, 2006"

// Options controls how days are computed and labelled.
type Options struct {
	// Location is the time zone used for both the day key and the label.
	// Defaults to UTC.
	Location *time.Location

	// Now is the reference time for Today and Yesterday. Defaults to time.Now.
	Now time.Time
}

// DateGroup holds the batch groups of one calendar day.
type DateGroup struct {
	Label  string       `json:"label"`
	Date   string       `json:"date"`
	Groups []BatchGroup `json:"groups"`
}

// BatchGroup is either every task of one batch on that day, or a single
// task without a batch.
type BatchGroup struct {
	BatchID string            `json:"batch_id,omitempty"`
	Status  domain.TaskStatus `json:"status"`
	Tasks   []domain.Task     `json:"tasks"`
}

// GroupForDisplay filters tasks to activeView and partitions them by day and
// batch. Day groups are ordered by the timestamp of their first task, most
// recent first. Within a day, groups appear in the order their first task
// appears in the input, and batch members keep their input order.
func GroupForDisplay(tasks []domain.Task, activeView domain.View, opts Options) []DateGroup {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	type dayBucket struct {
		group    DateGroup
		first    time.Time
		batchIdx map[string]int
	}

	var days []*dayBucket
	byKey := make(map[string]*dayBucket)

	for _, t := range tasks {
		if t.View != activeView {
			continue
		}

		local := t.Timestamp.In(loc)
		key := local.Format(time.DateOnly)

		day, ok := byKey[key]
		if !ok {
			day = &dayBucket{
				group: DateGroup{
					Label: Label(local, now.In(loc)),
					Date:  key,
				},
				first:    t.Timestamp,
				batchIdx: make(map[string]int),
			}
			byKey[key] = day
			days = append(days, day)
		}

		if t.BatchID == "" {
			day.group.Groups = append(day.group.Groups, BatchGroup{Tasks: []domain.Task{t}})
			continue
		}
		if i, ok := day.batchIdx[t.BatchID]; ok {
			day.group.Groups[i].Tasks = append(day.group.Groups[i].Tasks, t)
			continue
		}
		day.batchIdx[t.BatchID] = len(day.group.Groups)
		day.group.Groups = append(day.group.Groups, BatchGroup{
			BatchID: t.BatchID,
			Tasks:   []domain.Task{t},
		})
	}

	slices.SortStableFunc(days, func(a, b *dayBucket) int {
		return b.first.Compare(a.first)
	})

	out := make([]DateGroup, 0, len(days))
	for _, day := range days {
		for i := range day.group.Groups {
			day.group.Groups[i].Status = AggregateStatus(day.group.Groups[i].Tasks)
		}
		out = append(out, day.group)
	}
	return out
}

// AggregateStatus summarizes a group: error if any member failed, completed
// only if every member completed, pending otherwise.
func AggregateStatus(tasks []domain.Task) domain.TaskStatus {
	allCompleted := len(tasks) > 0
	for _, t := range tasks {
		switch t.Status {
		case domain.TaskStatusError:
			return domain.TaskStatusError
		case domain.TaskStatusCompleted:
		default:
			allCompleted = false
		}
	}
	if allCompleted {
		return domain.TaskStatusCompleted
	}
	return domain.TaskStatusPending
}

// Label names the calendar day of t relative to now. Both times should be in
// the same location.
func Label(t, now time.Time) string {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, t.Location())

	ny, nm, nd := now.Date()
	today := time.Date(ny, nm, nd, 0, 0, 0, 0, t.Location())

	switch {
	case day.Equal(today):
		return LabelToday
	case day.Equal(today.AddDate(0, 0, -1)):
		return LabelYesterday
	default:
		return t.Format(DateLayout)
	}
}
