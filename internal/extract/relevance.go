package extract

import (
	"path/filepath"
	"regexp"
	"strings"
)

var skipMediaTypes = map[string]bool{
	"image/gif":    true,
	"image/x-icon": true,
	"image/bmp":    true,
}

// Signature images, logos and other inline decoration.
var skipNamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^image\d*\.`),
	regexp.MustCompile(`^logo`),
	regexp.MustCompile(`^signature`),
	regexp.MustCompile(`^icon`),
	regexp.MustCompile(`^banner`),
	regexp.MustCompile(`^footer`),
	regexp.MustCompile(`^header`),
	regexp.MustCompile(`_signature\.`),
	regexp.MustCompile(`_logo\.`),
}

var documentExtensions = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".csv": true, ".txt": true, ".ppt": true, ".pptx": true, ".rtf": true,
	".odt": true, ".ods": true, ".zip": true, ".rar": true,
}

var meaningfulImageWords = []string{
	"invoice", "receipt", "document", "scan", "contract", "report", "screenshot",
}

// IsRelevant reports whether an attachment looks like a real document rather
// than a signature image or inline graphic.
func IsRelevant(filename, mediaType string) bool {
	if filename == "" {
		return false
	}
	name := strings.ToLower(filename)
	mt := strings.ToLower(mediaType)

	if skipMediaTypes[mt] {
		return false
	}
	for _, p := range skipNamePatterns {
		if p.MatchString(name) {
			return false
		}
	}

	if documentExtensions[filepath.Ext(name)] {
		return true
	}

	if strings.HasPrefix(mt, "image/") {
		if len(name) < 10 {
			return false
		}
		for _, w := range meaningfulImageWords {
			if strings.Contains(name, w) {
				return true
			}
		}
		return false
	}

	return true
}
