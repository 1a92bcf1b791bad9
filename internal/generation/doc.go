// Package generation defines the boundary between the task scheduler and the
// external image model. The scheduler only sees the Generator interface: a
// prompt plus zero or more input images in, one image reference out, or an
// error whose message is shown to the user once retries are exhausted.
package generation
