// Package api exposes the studio over HTTP: task submission, rerun and seed
// endpoints, the grouped feed, image downloads and a server-sent event stream
// of task updates. Handlers translate HTTP requests into StudioService calls
// and map service errors to status codes and safe messages.
package api
