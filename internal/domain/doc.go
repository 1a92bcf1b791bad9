// Package domain contains the core entities of the studio: generation tasks,
// the views (generation modes) that produce them, and the image references
// passed to and returned from the image model. It is independent of any
// storage, transport or model provider.
package domain
