// Package lockstore is a key-value store with atomic set-if-absent and TTL
// expiry. It backs cross-process mutual exclusion such as the wallet write
// lock.
package lockstore
