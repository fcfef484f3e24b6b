package inventory

import "fmt"

var ErrValidation = fmt.Errorf("validation failed")
var ErrNotFound = fmt.Errorf("not found")
var ErrPersistence = fmt.Errorf("could not persist inventory")
var ErrInvalidCredentials = fmt.Errorf("invalid credentials")

var ErrLastAdmin = fmt.Errorf("%w: at least one admin must remain", ErrValidation)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func notFound(entity, id string) error {
	return fmt.Errorf("%w: %s %q", ErrNotFound, entity, id)
}
