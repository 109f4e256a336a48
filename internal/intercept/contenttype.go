package intercept

import "strings"

// DefaultContentType is declared for any extension missing from the table.
const DefaultContentType = "text/plain"

var contentTypes = map[string]string{
	".html":  "text/html",
	".htm":   "text/html",
	".css":   "text/css",
	".js":    "application/javascript",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".png":   "image/png",
	".gif":   "image/gif",
	".xml":   "application/xml",
	".xhtml": "application/xhtml+xml",
	".json":  "application/json",
	".txt":   "text/plain",
}

// ContentTypeFor maps an archive path to the Content-Type it is served with.
// The extension is everything from the last dot, compared case-insensitively.
func ContentTypeFor(path string) string {
	i := strings.LastIndex(path, ".")
	if i < 0 {
		return DefaultContentType
	}
	if ct, ok := contentTypes[strings.ToLower(path[i:])]; ok {
		return ct
	}
	return DefaultContentType
}
