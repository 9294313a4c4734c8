// Package protocol owns the command wire contract.
//
// Ownership boundary:
// - command object shape and batch envelopes
// - outbound frame rendering (header prefix, body scrub)
// - inbound payload decoding
package protocol
