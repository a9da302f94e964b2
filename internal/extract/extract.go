package extract

import (
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

var (
	// ErrUnsupported means the media type has no text extractor.
	ErrUnsupported = errors.New("unsupported media type")

	// ErrCorrupt means the bytes could not be parsed as the declared type.
	ErrCorrupt = errors.New("corrupt attachment")
)

// Media types with an extractor.
const (
	TypePlain = "text/plain"
	TypeCSV   = "text/csv"
	TypeHTML  = "text/html"
	TypePDF   = "application/pdf"
	TypeXLSX  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	TypeDOCX  = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// MaxInputSize is the largest attachment handed to a parser.
const MaxInputSize = 25 * 1024 * 1024

// Extractor converts attachment bytes to text.
type Extractor interface {
	Extract(data []byte, mediaType, filename string) (string, error)
}

// Func adapts a function to the Extractor interface.
type Func func(data []byte, mediaType, filename string) (string, error)

// Extract calls f.
func (f Func) Extract(data []byte, mediaType, filename string) (string, error) {
	return f(data, mediaType, filename)
}

type parser func(data []byte) (string, error)

// Default extracts every supported format.
type Default struct {
	parsers map[string]parser
}

// New returns the default extractor.
func New() *Default {
	return &Default{
		parsers: map[string]parser{
			TypePlain: plainText,
			TypeCSV:   csvText,
			TypeHTML:  htmlText,
			TypePDF:   pdfText,
			TypeXLSX:  xlsxText,
			TypeDOCX:  docxText,
		},
	}
}

// Extract returns the text of data. The declared media type wins; a generic
// or missing one falls back to the filename extension.
func (d *Default) Extract(data []byte, mediaType, filename string) (string, error) {
	mt := ResolveMediaType(mediaType, filename)

	parse, ok := d.parsers[mt]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupported, mt)
	}
	if len(data) > MaxInputSize {
		return "", fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrUnsupported, len(data), MaxInputSize)
	}

	text, err := parse(data)
	if err != nil {
		return "", err
	}
	return normalizeSpace(text), nil
}

// ResolveMediaType strips parameters from mediaType and replaces generic
// types with the type implied by the filename extension.
func ResolveMediaType(mediaType, filename string) string {
	mt := strings.ToLower(strings.TrimSpace(mediaType))
	if parsed, _, err := mime.ParseMediaType(mt); err == nil {
		mt = parsed
	}

	if mt != "" && mt != "application/octet-stream" && mt != "binary/octet-stream" {
		return mt
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".log", ".md":
		return TypePlain
	case ".csv":
		return TypeCSV
	case ".htm", ".html":
		return TypeHTML
	case ".pdf":
		return TypePDF
	case ".xlsx":
		return TypeXLSX
	case ".docx":
		return TypeDOCX
	}
	if byExt := mime.TypeByExtension(filepath.Ext(filename)); byExt != "" {
		if parsed, _, err := mime.ParseMediaType(byExt); err == nil {
			return parsed
		}
	}
	return mt
}

func plainText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return strings.ToValidUTF8(string(data), ""), nil
	}
	return string(data), nil
}

// normalizeSpace trims trailing spaces from lines and collapses runs of
// blank lines.
func normalizeSpace(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t\r")
		if strings.TrimSpace(line) == "" {
			if blank || len(out) == 0 {
				continue
			}
			blank = true
			out = append(out, "")
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
