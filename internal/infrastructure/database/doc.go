// Package database provides SQLite connection management for CueGrid Core.
//
// It wraps database/sql with sensible SQLite defaults (WAL mode, busy
// timeout, single-writer pool) and an embedded-filesystem migration runner.
// The playback history repository in internal/sequence is its only consumer;
// sequence definitions themselves live in a JSON document, not here.
package database
