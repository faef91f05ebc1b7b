// Package contentnode is the client one content node uses to reach its
// peers: clock queries, sync requests and record export. The wire types
// are shared with the api package that serves them.
package contentnode
