package completion

import "errors"

var (
	// ErrNoResponse means the service replied without any message content.
	ErrNoResponse = errors.New("no response from completion service")

	// ErrNoJSON means the reply held no brace-delimited span.
	ErrNoJSON = errors.New("no JSON found in response")

	// ErrInvalidJSON means the extracted span did not parse.
	ErrInvalidJSON = errors.New("invalid JSON")
)

// ServiceError wraps a transport or API failure from the completion service.
type ServiceError struct {
	err error
}

func (e *ServiceError) Error() string {
	return "completion service: " + e.err.Error()
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// IsServiceError reports whether err came from the service itself rather
// than from reading its reply.
func IsServiceError(err error) bool {
	var se *ServiceError
	return errors.As(err, &se)
}
