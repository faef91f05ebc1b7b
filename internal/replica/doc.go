// Package replica defines the replica-set model shared by the sync engine:
// user assignments to a primary and up to two secondaries, sync requests,
// and the slice cursor used to partition the user id space.
package replica
