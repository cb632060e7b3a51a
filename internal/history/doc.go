// Package history keeps a SQLite log of the commands the controller has
// received, from both MQTT and the local web UI.
//
// The schema is versioned by the SQL files under migrations/, which are
// compiled into the binary and applied in filename order on Open. Each
// file runs in its own transaction and is recorded in schema_migrations,
// so reopening an existing database only applies what is new.
package history
