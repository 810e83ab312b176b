package arq

import "errors"

// Sentinel errors returned by the control block's public operations.
// Callers should use errors.Is against these rather than matching strings.
var (
	// ErrInvalidData is returned by Input when the conv field does not match
	// or the cmd byte is not one of PUSH/ACK/WASK/WINS.
	ErrInvalidData = errors.New("arq: invalid data")
	// ErrUnexpectedEOF is returned by Input when a header is truncated or a
	// segment's declared length exceeds the remaining bytes in the datagram.
	ErrUnexpectedEOF = errors.New("arq: unexpected EOF")
	// ErrNoData is returned by Send when called with an empty buffer and by
	// Recv when rcv_queue is empty (the caller should treat this as would-block).
	ErrNoData = errors.New("arq: no data")
	// ErrTooLarge is returned by Send when a write would fragment into more
	// than 255 segments.
	ErrTooLarge = errors.New("arq: data too long")
	// ErrShortBuffer is returned by Recv when the caller's buffer is smaller
	// than the next complete message.
	ErrShortBuffer = errors.New("arq: short buffer")
	// ErrInvalidMTU is returned by SetMTU when mtu is below the minimum
	// header-plus-margin size the codec requires.
	ErrInvalidMTU = errors.New("arq: invalid mtu")
)
