// Package fallback persists captured images locally when the collection
// service cannot be reached.
//
// The store is an append-only SQLite table (modernc driver, WAL journal) that
// keeps entries in insertion order. Identifiers follow the same img_ scheme as
// the collection service but are generated independently, so the two stores
// never share an id space and are never reconciled. Every persistence failure
// is reported as a capture.StorageError carrying the driver's own message.
package fallback
