package classify

import "errors"

// Error taxonomy for the classification pipeline. Handlers map these onto
// HTTP status codes; the orchestrator treats them all as fatal for the
// classification step.
var (
	// ErrUnknownModelType means the requested type is outside the closed
	// enumeration.
	ErrUnknownModelType = errors.New("unknown model type")

	// ErrShapeMismatch means the backend's output vector length does not
	// match the configured class list. This is a configuration bug and
	// fails closed.
	ErrShapeMismatch = errors.New("probability vector length does not match class list")

	// ErrModelLoad means the model artifact is missing or corrupt. Fatal
	// for that model type only.
	ErrModelLoad = errors.New("model load failed")

	// ErrInvalidImage means the image bytes are empty or not decodable.
	ErrInvalidImage = errors.New("invalid image")

	// ErrImageTooLarge means the image exceeds MaxImageBytes.
	ErrImageTooLarge = errors.New("image exceeds maximum size")
)
