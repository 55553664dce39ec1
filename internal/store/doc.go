// Package store persists pages, source files, and durable queue entries in
// SQLite. It owns the page status state machine: every status write passes
// through the transition table, and multi-table mutations (cascading deletes,
// bulk reorder, clear-all) are transactional so a crash can never leave
// orphaned queue entries or a partially applied reorder.
package store
