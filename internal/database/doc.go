// Package database keeps the load history of pageloader in SQLite.
//
// HistoryDB stores one row per page load in the loads table and one row per
// resource download in the resources table, so that `pageloader history`
// can list past loads and show which resources failed. The database is a
// single file in the XDG data directory, opened through the CGO-free
// modernc.org/sqlite driver.
package database
