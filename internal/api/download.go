package api

import (
	"regexp"
	"strings"
)

// Download filename rules
const (
	downloadPrefix      = "nanabanananana-"
	defaultDownloadName = "creation"
	maxDownloadNameLen  = 50
)

var (
	whitespaceRun   = regexp.MustCompile(`\s+`)
	nonFilenameRune = regexp.MustCompile(`[^a-z0-9-]`)
)

// DownloadFilename derives the download name of an output image from its
// prompt: lowercased, whitespace runs become hyphens, anything outside
// [a-z0-9-] is dropped and the result is cut to 50 characters.
func DownloadFilename(prompt, mimeType string) string {
	name := strings.ToLower(prompt)
	name = whitespaceRun.ReplaceAllString(name, "-")
	name = nonFilenameRune.ReplaceAllString(name, "")
	if len(name) > maxDownloadNameLen {
		name = name[:maxDownloadNameLen]
	}
	if name == "" {
		name = defaultDownloadName
	}
	return downloadPrefix + name + extensionFor(mimeType)
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpeg"
	}
}
