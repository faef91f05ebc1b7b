// Package api serves the HTTP surface of a content node: clock status for
// primaries reconciling their secondaries, the sync trigger and export used
// between nodes, client writes, and operational endpoints.
package api
