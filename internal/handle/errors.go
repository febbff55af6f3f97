package handle

import "errors"

// ErrRegistrationNotFound is returned when a handle does not resolve.
var ErrRegistrationNotFound = errors.New("registration not found")
