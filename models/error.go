package models

import "errors"

// Sentinel errors for the codec error taxonomy. The facade and HTTP layers
// branch on these with errors.Is; none of them carry retry semantics.
var (
	// ErrIo covers file open/read/write failures at any layer.
	ErrIo = errors.New("io: file open/read/write failure")

	// ErrUnsupportedContainer is raised when the input path's extension is
	// not png/jpg/jpeg.
	ErrUnsupportedContainer = errors.New("unsupported_container: extension not png/jpg/jpeg")

	// ErrDecodeImage is raised when the image codec rejects the input.
	ErrDecodeImage = errors.New("decode_image: image codec rejected input")

	// ErrEncodeImage is raised when the image codec rejects the output.
	ErrEncodeImage = errors.New("encode_image: image codec rejected output")

	// ErrCapacityError is raised when payload+header does not fit even at
	// the maximum packing mode.
	ErrCapacityError = errors.New("capacity: payload does not fit in carrier")

	// ErrInvalidHeader is raised when a parsed header fails any invariant.
	ErrInvalidHeader = errors.New("invalid_header: header failed validation")

	// ErrCipherBadKeyLength is raised when the cipher key is not 32 bytes.
	ErrCipherBadKeyLength = errors.New("cipher: key must be 32 bytes")

	// ErrCipherEmpty is raised on an empty cipher input.
	ErrCipherEmpty = errors.New("cipher: empty input")

	// ErrCipherPadding is raised when PKCS#7 padding fails to validate on
	// decrypt.
	ErrCipherPadding = errors.New("cipher: invalid padding")

	// ErrInternalBug indicates a bit-count assertion failed; a defect, not
	// a user error.
	ErrInternalBug = errors.New("internal_bug: bit-count assertion failed")
)

// ErrorResponse is the HTTP-facing error envelope, mirrored on the
// teacher's handlers.sendError shape.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

// ErrorDetail carries a human message plus a machine-readable code.
type ErrorDetail struct {
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
