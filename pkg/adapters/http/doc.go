// Package http exposes the story engine as a JSON API.
//
// Every mutating route goes through the dispatcher, so API clients receive the same
// render instructions a chat transport would deliver. Clients watching a session can
// follow those renders live on GET /sessions/{id}/events (Server-Sent Events).
package http
