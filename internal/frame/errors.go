package frame

import "errors"

// Domain errors for the frame package.
var (
	// ErrChecksum describes a candidate frame whose checksum does not
	// match. The Decoder does not return it; it skips one byte and resyncs.
	ErrChecksum = errors.New("frame: checksum mismatch")

	// ErrTruncated indicates the buffer does not yet hold a complete frame.
	ErrTruncated = errors.New("frame: truncated")

	// ErrTooLarge describes a command that cannot fit in a frame of
	// FrameLenMax bytes. Builder.Add reports that case by returning false,
	// not with this error.
	ErrTooLarge = errors.New("frame: command exceeds FrameLenMax")
)
