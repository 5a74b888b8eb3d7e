package constants

import "strings"

const (
	PDF  = "PDF"
	TEXT = "TXT"
)

// AllowedExtensions holds the default allowed file extensions for report ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"txt":  {},
	"text": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat returns PDF, TXT or "" for unsupported extensions.
func MapExtToFormat(ext string) string {
	switch NormalizeExt(ext) {
	case "pdf":
		return PDF
	case "txt", "text":
		return TEXT
	default:
		return ""
	}
}
