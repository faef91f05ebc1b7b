// Package sqlitedb opens the node's SQLite database and applies its schema.
// Both the local clock state and the durable lock store live in it.
package sqlitedb
