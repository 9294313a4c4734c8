package frame

import (
	"bytes"
	"crypto/sha1"
	"errors"
)

const (
	// Sentinel terminates one packet on the wire.
	Sentinel byte = 0x00

	// DigestHexLen is the length of the lowercase hex digest trailing
	// every inbound packet.
	DigestHexLen = 2 * sha1.Size

	// Placeholder stands in for reads that carry no usable content.
	Placeholder = `{"command":"missingSocketDataString"}`
)

var ErrShortPacket = errors.New("frame: packet shorter than digest trailer")

// ExtractPacket cuts a single packet out of one raw socket read. The packet
// is everything before the first sentinel byte; anything after the sentinel
// is dropped. Reads that are empty or all whitespace yield Placeholder.
func ExtractPacket(raw []byte) string {
	if i := bytes.IndexByte(raw, Sentinel); i >= 0 {
		raw = raw[:i]
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return Placeholder
	}
	return string(raw)
}

// SplitDigest separates a packet into its payload and the digest trailer.
// The digest is the final DigestHexLen bytes; the payload is everything
// before it and may be empty. Packets too short to carry a trailer fail
// with ErrShortPacket.
func SplitDigest(packet string) (payload, digest string, err error) {
	if len(packet) < DigestHexLen {
		return "", "", ErrShortPacket
	}
	cut := len(packet) - DigestHexLen
	return packet[:cut], packet[cut:], nil
}
