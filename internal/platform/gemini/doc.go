// Package gemini provides an implementation of the generation.Generator
// interface backed by Google's Gemini and Imagen models.
//
// Text-only requests go to the Imagen model through GenerateImages. Requests
// that carry input images go to the Gemini image model through
// GenerateContent, with the images sent as inline parts ahead of the prompt.
//
// Errors from the provider are translated into short user-facing messages
// that still match the generation package's sentinel errors with errors.Is,
// so the scheduler can store the message on a failed task as is.
package gemini
