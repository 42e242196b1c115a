// Package database provides SQLite-based storage for cannibalscan.
//
// Every analysis fetched from the backend (or imported from an export) is
// stored as JSON in the analyses table together with a short summary, so
// it can be listed with the history command and filtered again later
// without another slow backend call.
//
// The store uses modernc.org/sqlite, a CGO-free driver; the database is a
// single file in the XDG data directory. WAL mode lets the local viewer
// read while the CLI writes.
package database
