// Package writelock guards mutation of a wallet's local state with a TTL
// lock held in a shared lock store. Locks expire on their own; holders doing
// long work must re-acquire before the TTL runs out.
package writelock
