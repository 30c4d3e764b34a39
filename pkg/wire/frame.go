package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"time"
)

// lengthPrefixSize is the width of the frame's length prefix.
const lengthPrefixSize = 4

// writeDeadline bounds a single frame send so that a stalled peer cannot
// block the broadcaster's mutex indefinitely; this approximates the
// MSG_DONTWAIT a POSIX implementation would use.
const writeDeadline = 250 * time.Millisecond

// EncodeMessage serializes m into out using the schema's canonical wire
// format. No length prefix is written. It fails with ErrBufferTooSmall if
// out cannot hold the encoded message.
func EncodeMessage(m Message, out []byte) (int, error) {
	data, err := Marshal(m)
	if err != nil {
		return 0, err
	}
	if len(data) > len(out) {
		return 0, fmt.Errorf("%w: need %d, have %d", ErrBufferTooSmall, len(data), len(out))
	}
	return copy(out, data), nil
}

// FrameSend constructs a single contiguous buffer
// [4-byte big-endian length][payload] and performs exactly one write,
// with a short deadline to approximate the non-blocking send the
// protocol calls for: congestion surfaces as ErrWouldBlock rather than
// stalling the caller. A partial write poisons the stream from the
// caller's perspective and is reported as ErrTruncatedWrite.
func FrameSend(conn net.Conn, payload []byte) error {
	frame := make([]byte, lengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(frame[:lengthPrefixSize], uint32(len(payload)))
	copy(frame[lengthPrefixSize:], payload)

	if err := conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
		return fmt.Errorf("wire: set write deadline: %w", err)
	}
	defer conn.SetWriteDeadline(time.Time{})

	n, err := conn.Write(frame)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return ErrWouldBlock
		}
		return fmt.Errorf("wire: send: %w", err)
	}
	if n != len(frame) {
		return ErrTruncatedWrite
	}
	return nil
}

// FrameRecv blocks until it has read one complete frame, then decodes its
// payload with unmarshal. It distinguishes ErrPeerClosed (the stream ended
// before the frame was complete), ErrTooLarge (length prefix exceeds max), and
// ErrDecode (schema rejected the body — the stream may still be valid)
// from plain I/O errors.
func FrameRecv[T any](r io.Reader, max uint32, unmarshal func([]byte) (T, error)) (T, error) {
	var zero T

	var lenBuf [lengthPrefixSize]byte
	if err := readExact(r, lenBuf[:]); err != nil {
		return zero, err
	}
	length := binary.BigEndian.Uint32(lenBuf[:])
	if length > max {
		return zero, fmt.Errorf("%w: %d > %d", ErrTooLarge, length, max)
	}

	body := make([]byte, length)
	if err := readExact(r, body); err != nil {
		return zero, err
	}

	msg, err := unmarshal(body)
	if err != nil {
		return zero, err
	}
	return msg, nil
}

// readExact reads exactly len(buf) bytes, looping over short reads.
// A read that hits io.EOF before buf is full is reported as ErrPeerClosed,
// whether or not some bytes of this call were already consumed.
func readExact(r io.Reader, buf []byte) error {
	read := 0
	for read < len(buf) {
		n, err := r.Read(buf[read:])
		read += n
		if err != nil {
			if errors.Is(err, io.EOF) {
				if read == 0 {
					return ErrPeerClosed
				}
				return ErrPeerClosed
			}
			return fmt.Errorf("wire: recv: %w", err)
		}
		if n == 0 && err == nil {
			// Defensive: a Reader that returns (0, nil) without progress
			// would spin forever otherwise.
			return fmt.Errorf("wire: recv: reader made no progress")
		}
	}
	return nil
}
