// Package database provides SQLite connection management and schema
// migrations for the BlueMe server.
//
// Migrations are embedded into the binary via the top-level migrations
// package and applied in version order on startup, each in its own
// transaction.
package database
