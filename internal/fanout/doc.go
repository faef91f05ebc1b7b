// Package fanout runs one call per peer in parallel and gathers the
// outcomes. A failing peer never hides the results of the others.
package fanout
