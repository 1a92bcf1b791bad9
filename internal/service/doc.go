// Package service contains the application use cases. StudioService turns
// client submissions into scheduled generation tasks and serves the task
// views (lists, feed, reuse seeds) that the API and CLI expose.
//
// The service depends on the scheduler and store through small interfaces
// and never on their implementations.
package service
