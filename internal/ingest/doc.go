// Package ingest pulls messages from a mailbox, extracts attachment text and
// indexes the result into the email store.
//
// Messages are processed concurrently with a bounded number of workers. Each
// message fails in isolation: a failed fetch or index is logged, counted and
// reported, and the rest of the batch continues. Indexing is an upsert, so
// running the same batch again retries the failures without duplicating the
// successes.
//
// An optional Seen filter (RedisSeen in production) skips messages another
// run has already handled.
package ingest
