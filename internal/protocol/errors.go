package protocol

import "errors"

var (
	ErrEncode   = errors.New("protocol: encode failed")
	ErrDecode   = errors.New("protocol: payload is not a command object")
	ErrNoHeader = errors.New("protocol: no outbound header configured")
)
