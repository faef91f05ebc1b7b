// Package syncqueue runs sync jobs against secondaries. Manual syncs follow
// client writes on the primary; recurring syncs come from the replica set
// scan. Each job asks the secondary to sync, then polls the secondary's
// clock until it catches up, and re-enqueues itself when it did not.
package syncqueue
