// Package http is the transport that talks to a conversational runtime over its
// JSON HTTP API.
package http
