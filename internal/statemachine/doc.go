// Package statemachine runs the replica set scan. One tick fetches the users
// this node is primary for, keeps the current modulo slice of them and
// reconciles their secondaries. Ticks run one at a time on a single-worker
// queue; each finished tick, successful or not, schedules the next slice.
package statemachine
