package utils

import "strings"

// pathUnsafeChars are stripped from user-facing image names so the name can
// double as a filesystem-safe label.
const pathUnsafeChars = `\/:*?"<>|`

// SanitizeBaseName removes path-unsafe characters and surrounding whitespace
// from a proposed image base name.
func SanitizeBaseName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if !strings.ContainsRune(pathUnsafeChars, r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// ExtensionForMime maps a validated image MIME type to a file extension:
// "png" when the type mentions png, "jpg" otherwise.
func ExtensionForMime(mime string) string {
	if strings.Contains(strings.ToLower(mime), "png") {
		return "png"
	}
	return "jpg"
}

// IsAcceptedImageMime reports whether the content type is one of the accepted
// image types (JPEG or PNG), case-insensitively.
func IsAcceptedImageMime(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "image/jpeg") ||
		strings.Contains(ct, "image/jpg") ||
		strings.Contains(ct, "image/png")
}

// BaseNameWithoutExt returns the file name with its final extension removed.
// A leading dot (hidden file) is not treated as an extension separator.
func BaseNameWithoutExt(fileName string) string {
	lastDot := strings.LastIndex(fileName, ".")
	if lastDot > 0 {
		return fileName[:lastDot]
	}
	return fileName
}

// ExtOf returns the extension after the final dot, or "" when none exists.
func ExtOf(fileName string) string {
	lastDot := strings.LastIndex(fileName, ".")
	if lastDot >= 0 && lastDot < len(fileName)-1 {
		return fileName[lastDot+1:]
	}
	return ""
}
