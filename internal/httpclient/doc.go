// Package httpclient builds the retrying HTTP client shared by the discovery
// and content node clients, and speaks their {"data": ...} JSON envelope.
package httpclient
