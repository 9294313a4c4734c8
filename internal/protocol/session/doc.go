// Package session owns the per-peer connection wrapper.
//
// Ownership boundary:
// - session lifecycle (greeting, destroy, close hooks)
// - inbound packet validation and handler dispatch
// - outbound frames, tick-mode queueing, batch flushes
package session
