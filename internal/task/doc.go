// Package task owns the lifecycle of image-generation tasks. The Scheduler
// appends pending tasks to a TaskStore, drives each one independently through
// a bounded retry loop with exponential backoff and jitter, and records the
// outcome. Tasks still pending in a persistent store are resumed on Start,
// so generation survives application restarts.
package task
