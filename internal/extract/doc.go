// Package extract turns attachment bytes into plain text for the search
// index.
//
// Supported formats are plain text, CSV, HTML, PDF, XLSX and DOCX. Anything
// else fails with ErrUnsupported; bytes that claim a supported format but do
// not parse fail with ErrCorrupt. Callers record either failure on the
// attachment and keep indexing the rest of the message.
//
// IsRelevant decides whether an attachment is worth extracting at all, so
// signature images and inline logos never reach the extractor.
package extract
