package wire

import "errors"

// Errors surfaced by the framing codec, matching the categories in the
// protocol's error handling design: a stream that ends before a frame is
// complete is PeerClosed, an oversized length prefix is TooLarge, a failed
// schema decode is Decode, and anything else bubbles up wrapped.
var (
	ErrPeerClosed      = errors.New("wire: peer closed connection")
	ErrTooLarge        = errors.New("wire: frame exceeds maximum size")
	ErrDecode          = errors.New("wire: failed to decode message")
	ErrBufferTooSmall  = errors.New("wire: output buffer too small")
	ErrTruncatedWrite  = errors.New("wire: partial frame write")
	ErrWouldBlock      = errors.New("wire: write would block")
	ErrUnknownVariant  = errors.New("wire: unknown union variant")
)
