// Package dedup tracks waiting sync jobs so that at most one sync per
// (sync type, wallet, secondary) is waiting in a queue at any time.
package dedup
