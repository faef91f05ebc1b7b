// Package repair finds secondaries that trail their primary and enqueues the
// syncs that bring them back in line. It compares clocks for one slice of
// users at a time and never lets a failure for one user or one secondary
// affect the others.
package repair
