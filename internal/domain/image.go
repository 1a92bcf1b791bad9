package domain

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
)

// ImageRef references an image as a base64 data URL
// ("data:image/png;base64,....").
type ImageRef string

// MaxImageBytes is the largest decoded input image accepted (4 MiB).
const MaxImageBytes = 4 * 1024 * 1024

// Accepted input image MIME types.
var allowedInputTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
}

var dataURLRegex = regexp.MustCompile(`^data:(image/[a-zA-Z+.-]+);base64,(.+)$`)

// NewImageRef encodes raw image bytes as a data URL.
func NewImageRef(mimeType string, data []byte) ImageRef {
	return ImageRef("data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data))
}

// ParseImageRef splits a data URL into its MIME type and decoded bytes.
func ParseImageRef(ref ImageRef) (mimeType string, data []byte, err error) {
	match := dataURLRegex.FindStringSubmatch(string(ref))
	if match == nil {
		return "", nil, fmt.Errorf("%w: invalid image data URL format", ErrInvalidImage)
	}
	data, err = base64.StdEncoding.DecodeString(match[2])
	if err != nil {
		return "", nil, fmt.Errorf("%w: invalid base64 payload: %v", ErrInvalidImage, err)
	}
	return strings.ToLower(match[1]), data, nil
}

// MIMEType returns the MIME type declared by the data URL, or "" when the
// reference is not a data URL.
func (r ImageRef) MIMEType() string {
	match := dataURLRegex.FindStringSubmatch(string(r))
	if match == nil {
		return ""
	}
	return strings.ToLower(match[1])
}

// ValidateInputImage checks that ref is an acceptable upload: a PNG, JPEG or
// WEBP data URL of at most MaxImageBytes.
func ValidateInputImage(ref ImageRef) error {
	mimeType, data, err := ParseImageRef(ref)
	if err != nil {
		return err
	}
	if !allowedInputTypes[mimeType] {
		return fmt.Errorf("%w: %s, please upload PNG, JPG, or WEBP", ErrUnsupportedImageType, mimeType)
	}
	if len(data) > MaxImageBytes {
		return fmt.Errorf("%w: %d bytes, max size is 4MB", ErrImageTooLarge, len(data))
	}
	return nil
}

// CloneImages returns a copy of images, preserving nil.
func CloneImages(images []ImageRef) []ImageRef {
	if images == nil {
		return nil
	}
	out := make([]ImageRef, len(images))
	copy(out, images)
	return out
}
