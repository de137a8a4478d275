// Package database provides SQLite connectivity for Zone Climate Core.
//
// It wraps database/sql with directory creation, WAL configuration, and
// health checks. The schema itself is owned by the history package.
package database
