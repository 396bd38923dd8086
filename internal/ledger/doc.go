// Package ledger persists the outcome of every year processed by an ancillary
// update run in a small SQLite database, so operators can see which years
// were refreshed, which were skipped, and why.
//
// The store follows the same conventions as other SQLite state in ledaps:
// WAL journaling, a busy timeout, bounded retries on SQLITE_BUSY, and a
// schema_version row that must match the compiled-in version.
package ledger
