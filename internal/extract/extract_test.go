package extract

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildDOCX(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)

	body := `<?xml version="1.0" encoding="UTF-8"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`
	for _, p := range paragraphs {
		body += `<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`
	}
	body += `</w:body></w:document>`
	_, err = w.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func buildXLSX(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "Invoice"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "Amount"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "INV-7"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", 990))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestExtract(t *testing.T) {
	x := New()

	tests := []struct {
		name      string
		data      []byte
		mediaType string
		filename  string
		want      string
		contains  []string
	}{
		{
			name:      "plain text",
			data:      []byte("Total due:   42 EUR  \r\n\r\n\r\nThanks"),
			mediaType: "text/plain; charset=utf-8",
			want:      "Total due:   42 EUR\n\nThanks",
		},
		{
			name:      "csv",
			data:      []byte("item,price\n\"Widget, large\",10\n"),
			mediaType: TypeCSV,
			want:      "item\tprice\nWidget, large\t10",
		},
		{
			name:      "html drops scripts",
			data:      []byte(`<html><head><title>t</title><script>var x = 1;</script></head><body><p>Hello <b>world</b></p><p>Second   line</p></body></html>`),
			mediaType: TypeHTML,
			want:      "Hello world\nSecond line",
		},
		{
			name:     "docx by extension",
			data:     buildDOCX(t, "Service Agreement", "Term: 12 months"),
			filename: "contract.docx",
			want:     "Service Agreement\nTerm: 12 months",
		},
		{
			name:      "xlsx",
			data:      buildXLSX(t),
			mediaType: "application/octet-stream",
			filename:  "invoices.xlsx",
			contains:  []string{"## Sheet1", "Invoice\tAmount", "INV-7\t990"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := x.Extract(tt.data, tt.mediaType, tt.filename)
			require.NoError(t, err)
			if tt.want != "" {
				assert.Equal(t, tt.want, got)
			}
			for _, c := range tt.contains {
				assert.Contains(t, got, c)
			}
		})
	}
}

func TestExtract_Failures(t *testing.T) {
	x := New()

	tests := []struct {
		name      string
		data      []byte
		mediaType string
		filename  string
		wantErr   error
	}{
		{name: "image", data: []byte{0x89, 'P', 'N', 'G'}, mediaType: "image/png", filename: "scan.png", wantErr: ErrUnsupported},
		{name: "unknown binary", data: []byte{1, 2, 3}, mediaType: "application/octet-stream", filename: "blob", wantErr: ErrUnsupported},
		{name: "corrupt pdf", data: []byte("%PDF-1.4 not really"), mediaType: TypePDF, filename: "x.pdf", wantErr: ErrCorrupt},
		{name: "corrupt docx", data: []byte("PK garbage"), mediaType: TypeDOCX, filename: "x.docx", wantErr: ErrCorrupt},
		{name: "corrupt xlsx", data: []byte("nope"), mediaType: TypeXLSX, filename: "x.xlsx", wantErr: ErrCorrupt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := x.Extract(tt.data, tt.mediaType, tt.filename)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestResolveMediaType(t *testing.T) {
	tests := []struct {
		mediaType string
		filename  string
		want      string
	}{
		{"application/pdf", "whatever.bin", TypePDF},
		{"Text/Plain; charset=UTF-8", "", TypePlain},
		{"application/octet-stream", "report.pdf", TypePDF},
		{"", "notes.TXT", TypePlain},
		{"", "page.html", TypeHTML},
		{"", "noext", ""},
	}

	for _, tt := range tests {
		t.Run(tt.mediaType+"|"+tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveMediaType(tt.mediaType, tt.filename))
		})
	}
}

func TestHTMLToText(t *testing.T) {
	got := HTMLToText(`<div>Meeting moved to <a href="#">Friday</a>.</div><style>p{}</style><ul><li>one</li><li>two</li></ul>`)
	assert.Equal(t, "Meeting moved to Friday.\none\ntwo", got)
}

func TestFunc(t *testing.T) {
	var x Extractor = Func(func(data []byte, _, _ string) (string, error) {
		return string(data), nil
	})
	got, err := x.Extract([]byte("ok"), "", "")
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}
