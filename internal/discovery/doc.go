// Package discovery queries a discovery node for the replica sets of the
// users a content node serves.
package discovery
