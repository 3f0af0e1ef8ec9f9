// Package catalog keeps the local view of the game catalog in step with the
// catalog API.
//
// The Engine owns the only in-memory list of entries. Its operations are
// list, refresh, delete and upload; presentation code reads Snapshot and
// never mutates entries directly.
//
// # Merge rules
//
// Every operation takes a sequence number when it is started. A result is
// written to an entry only if its sequence is newer than the sequence that
// last wrote that entry, so a slow refresh never overwrites a newer list or
// refresh. A list replaces the cache wholesale; a refresh replaces its own
// entry in place and is discarded if the entry has left the cache. A delete
// removes the entry only after the API confirmed it.
//
// # Reconciliation
//
// Entries without a URL are still being processed by the service. Each one
// is queued for a single-entry refresh on a de-duplicating delayed queue
// served by a small worker pool, and re-queued after the poll interval until
// it is complete, failed, or the poll limit is reached.
package catalog
