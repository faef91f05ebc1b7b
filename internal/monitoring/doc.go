// Package monitoring runs the chained state-monitoring queue. Exactly one job
// exists at a time; each job pages a batch of users from discovery after a
// cursor, reconciles those in the current slice and, once finished, enqueues
// its successor with the slice advanced.
package monitoring
