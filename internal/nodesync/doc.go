// Package nodesync applies a primary's records on a secondary. Every sync
// holds the wallet write lock for its whole run, so a sync never interleaves
// with a client write or another sync of the same wallet.
package nodesync
