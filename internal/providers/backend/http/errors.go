package http

import "github.com/crmarques/liveops/faults"

func validationError(message string, cause error) error {
	return faults.NewTypedError(faults.ValidationError, message, cause)
}

func notFoundError(message string, cause error) error {
	return faults.NewTypedError(faults.NotFoundError, message, cause)
}

func conflictError(message string, cause error) error {
	return faults.NewTypedError(faults.ConflictError, message, cause)
}

func authError(message string, cause error) error {
	return faults.NewTypedError(faults.AuthError, message, cause)
}

func transportError(message string, cause error) error {
	return faults.NewTypedError(faults.TransportError, message, cause)
}

func internalError(message string, cause error) error {
	return faults.NewTypedError(faults.InternalError, message, cause)
}

func canceledError(message string, cause error) error {
	return faults.NewTypedError(faults.CanceledError, message, cause)
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	return faults.IsCategory(err, faults.NotFoundError)
}
