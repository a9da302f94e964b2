// Package store is the email index: an SQLite database holding every
// ingested message, its attachments and an FTS5 full-text index over
// subject, body and extracted attachment text.
//
// Documents are keyed by the provider-assigned message id. Indexing the same
// id again overwrites the stored document and replaces its attachments, so
// ingestion can be re-run safely. The store never deletes documents.
//
// Errors are reported through the sentinel values in errors.go and should be
// checked with errors.Is.
package store
