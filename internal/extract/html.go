package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const blockElements = "p, div, br, li, tr, h1, h2, h3, h4, h5, h6, table, blockquote"

func htmlText(data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: parsing html: %v", ErrCorrupt, err)
	}
	return documentText(doc), nil
}

// HTMLToText renders an HTML message body as plain text. It never fails;
// unparsable input is returned unchanged.
func HTMLToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	return normalizeSpace(documentText(doc))
}

func documentText(doc *goquery.Document) string {
	doc.Find("script, style, head, noscript").Remove()
	doc.Find(blockElements).Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	lines := strings.Split(doc.Text(), "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.Join(lines, "\n")
}
