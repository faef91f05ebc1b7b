// Package clock provides per-user write clocks and the comparison used to
// detect divergence between a primary and its secondaries. A clock value is
// a node's local write cursor for one user; it only ever moves forward, so a
// secondary whose clock trails the primary is missing writes.
package clock
