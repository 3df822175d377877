package uploads

import (
	"mime"
	"path/filepath"
	"strings"
)

var allowedExtensions = newSet(
	".jpeg", ".jpg", ".png", ".gif",
	".pdf", ".doc", ".docx", ".txt", ".md",
)

var allowedMimeTypes = newSet(
	"image/jpeg",
	"image/jpg",
	"image/png",
	"image/gif",
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"text/plain",
	"text/markdown",
)

func newSet(values ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, value := range values {
		set[value] = struct{}{}
	}
	return set
}

// Admit reports whether an upload may be stored. Either the extension of the
// original filename or the declared content type has to be on the allow-list;
// client-reported content types are unreliable, so one match is enough.
func Admit(originalName, contentType string) bool {
	return extensionAllowed(originalName) || mimeTypeAllowed(contentType)
}

func extensionAllowed(originalName string) bool {
	_, ok := allowedExtensions[strings.ToLower(filepath.Ext(originalName))]
	return ok
}

func mimeTypeAllowed(contentType string) bool {
	mediaType := strings.ToLower(strings.TrimSpace(contentType))
	if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
		mediaType = parsed
	}
	_, ok := allowedMimeTypes[mediaType]
	return ok
}
