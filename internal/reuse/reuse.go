// Package reuse turns an existing task back into input: a seed that
// pre-populates a new submission form, or an identical resubmission.
// Nothing here touches the task store.
package reuse

import "github.com/phrazzld/studio-api/internal/domain"

// Insert returns the seed used to pre-populate a new submission with the
// task's view, prompt and input images. No task is created.
func Insert(task domain.Task) domain.Seed {
	return domain.Seed{
		View:        task.View,
		Prompt:      task.Prompt,
		InputImages: domain.CloneImages(task.InputImages),
	}
}

// RerunSubmission returns a submission that recreates the task as it was
// submitted. Batch members rerun as a new batch, singletons as a new singleton.
func RerunSubmission(task domain.Task) domain.Submission {
	return domain.Submission{
		Prompt:      task.Prompt,
		InputImages: domain.CloneImages(task.InputImages),
		View:        task.View,
		FanOut:      task.InBatch(),
	}
}
