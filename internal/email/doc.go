// Package email defines the mail document model shared by the store, the
// ingestion pipeline and the agent tools.
//
// A Document is keyed by its provider-assigned message id. Re-indexing a
// document with the same id replaces the stored copy, including its whole
// attachment sequence. Attachments are identified within their owning
// document only.
//
// Context renders a document the way it is handed to the completion provider:
//
//	Subject: Invoice 2
//	From: Accounts <a@x.com>
//	Date: 2024-05-02 10:00
//	Body: ...
//	Attachments: 1 file(s)
package email
