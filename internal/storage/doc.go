// Package storage holds a node's local per-wallet state: an ordered log of
// records and the clock value of the newest one. The clock of a wallet is
// the count of records applied for it and never decreases.
package storage
