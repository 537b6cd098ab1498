package utils

import (
	"path/filepath"
	"regexp"
	"strings"
)

const (
	// FallbackAttachmentName is used when a filename is empty or normalizes
	// to nothing meaningful.
	FallbackAttachmentName = "unnamed_attachment"

	maxFilenameLength = 200
)

var unsafeFilenameChars = regexp.MustCompile(`[^\w\-. ]`)

// NormalizeFilename replaces characters outside the safe set with
// underscores, guarantees a non-empty result and caps the length while
// preserving the extension.
func NormalizeFilename(name string) string {
	if name == "" {
		return FallbackAttachmentName
	}

	normalized := unsafeFilenameChars.ReplaceAllString(name, "_")
	normalized = strings.TrimSpace(normalized)

	// nothing left but padding characters
	if strings.Trim(normalized, "._ ") == "" {
		return FallbackAttachmentName
	}

	if len(normalized) > maxFilenameLength {
		ext := filepath.Ext(normalized)
		if len(ext) >= maxFilenameLength {
			ext = ""
		}
		normalized = normalized[:maxFilenameLength-len(ext)] + ext
	}

	return normalized
}

// ExtensionOf returns the lowercased extension of a filename, dot included.
func ExtensionOf(name string) string {
	return strings.ToLower(filepath.Ext(name))
}
