package multistream

import "errors"

var (
	// ErrBadArgument reports an invalid layout, stream count or call argument.
	ErrBadArgument = errors.New("multistream: invalid argument")

	// ErrAllocFail reports that a sub-codec could not be allocated.
	ErrAllocFail = errors.New("multistream: allocation failed")

	// ErrBufferTooSmall reports an output buffer that cannot hold the result,
	// or an input packet shorter than the minimum framing overhead.
	ErrBufferTooSmall = errors.New("multistream: buffer too small")

	// ErrCorruptedData reports a packet that ran out mid-stream or whose
	// streams disagree on frame length.
	ErrCorruptedData = errors.New("multistream: corrupted data")

	// ErrUnsupportedRequest reports a ctl request the codec cannot serve.
	ErrUnsupportedRequest = errors.New("multistream: unsupported request")
)
