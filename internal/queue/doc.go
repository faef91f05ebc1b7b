// Package queue provides the job queue the sync engine schedules its work on.
// A queue runs a bounded number of jobs in parallel, supports delayed jobs,
// pausing, rate limiting and wholesale clearing, and reports job lifecycle
// transitions as typed events on a channel instead of listener callbacks.
//
// Completed and failed jobs leave the queue immediately; a bounded history
// is kept only for observability.
package queue
