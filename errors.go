package mbuf

import "errors"

var (
	// ErrInvalidCapacity indicates New was called with a capacity that cannot back a buffer.
	ErrInvalidCapacity = errors.New("mbuf: invalid buffer capacity")

	// ErrTooLarge indicates a growth would push the capacity past MaxCapacity.
	ErrTooLarge = errors.New("mbuf: buffer too large")

	// ErrDataTooLarge indicates SetData was called with more bytes than the buffer can hold.
	// SetData never grows, so this is a caller bug and is raised as a panic.
	ErrDataTooLarge = errors.New("mbuf: data length exceeds buffer capacity")

	// ErrReleased indicates an operation on a buffer whose storage has been released,
	// either explicitly or by handing it to a Pool.
	ErrReleased = errors.New("mbuf: buffer released")

	// ErrInvalidSeek indicates a seek was attempted outside the valid data.
	ErrInvalidSeek = errors.New("mbuf: seek to a invalid position")

	// ErrInvalidWhence indicates that an invalid 'whence' parameter was provided to a Seek operation.
	ErrInvalidWhence = errors.New("mbuf: unsupported whence")

	// ErrInvalidWrite indicates that an io.Writer returned an invalid count from Write.
	ErrInvalidWrite = errors.New("mbuf: writer returned invalid count from Write")

	// ErrInvalidRead indicates that an io.Reader returned an invalid (negative or outbound) count from Read.
	ErrInvalidRead = errors.New("mbuf: reader returned invalid count from Read")
)
