package loader

import "errors"

// Errors returned by the loader. Every error that leaves the package wraps
// exactly one of these with positional context, so callers match with
// errors.Is rather than by message.
var (
	// ErrUnsupportedFormat reports a file extension or container kind the loader cannot read.
	ErrUnsupportedFormat = errors.New("unsupported container format")

	// ErrFormat reports malformed container structure: bad magic, unknown or
	// duplicated chunks, invalid JSON, or a document that references itself
	// inconsistently.
	ErrFormat = errors.New("malformed container")

	// ErrUnsupportedVersion reports a binary container whose version is not 2.
	ErrUnsupportedVersion = errors.New("unsupported GLB version")

	// ErrTruncatedContainer reports that the bytes present in a binary container
	// do not add up to its declared length.
	ErrTruncatedContainer = errors.New("truncated container")

	// ErrUnsupportedComponentType reports an accessor component type the decoder does not implement.
	ErrUnsupportedComponentType = errors.New("unsupported accessor component type")

	// ErrBufferUnderrun reports accessor or buffer view geometry that reaches past the available bytes.
	ErrBufferUnderrun = errors.New("buffer underrun")

	// ErrBufferUnavailable reports a buffer with no bytes, e.g. a remote fetch
	// that answered with a non-success status.
	ErrBufferUnavailable = errors.New("buffer data unavailable")

	// ErrInvalidDataURI reports a data: URI without a payload or with malformed base64.
	ErrInvalidDataURI = errors.New("invalid data URI")

	// ErrNotFound reports a missing local file.
	ErrNotFound = errors.New("file not found")

	// ErrNetwork reports a transport failure while fetching a remote buffer, including timeouts.
	ErrNetwork = errors.New("network error")

	// ErrInvalidSceneIndex reports a default scene index outside the scene list.
	ErrInvalidSceneIndex = errors.New("invalid scene index")

	// ErrIndexOutOfRange reports a reference to a list element that does not exist.
	ErrIndexOutOfRange = errors.New("index out of range")
)
