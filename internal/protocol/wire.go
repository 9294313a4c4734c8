package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EncodeFrame renders cmd for the wire: the marshalled command prefixed by
// the outbound header. Every literal occurrence of the header inside the
// body is stripped before the prefix goes on, so the header appears exactly
// once in the result.
func EncodeFrame(header string, cmd Command) ([]byte, error) {
	if header == "" {
		return nil, ErrNoHeader
	}
	if cmd == nil {
		return nil, fmt.Errorf("%w: nil command", ErrEncode)
	}
	body, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	body = bytes.ReplaceAll(body, []byte(header), nil)
	out := make([]byte, 0, len(header)+len(body))
	out = append(out, header...)
	out = append(out, body...)
	return out, nil
}

// DecodePayload parses a digest-validated payload into a Command. Anything
// that is not a single JSON object fails with ErrDecode.
func DecodePayload(payload []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if cmd == nil {
		return nil, fmt.Errorf("%w: null payload", ErrDecode)
	}
	return cmd, nil
}
