package clinic

import "errors"

var (
	ErrClinicNotFound      = errors.New("clinic not found")
	ErrClinicAlreadyExists = errors.New("clinic id already taken")
	ErrNameRequired        = errors.New("clinic name is required")
	ErrInvalidID           = errors.New("clinic id must be 1-64 letters, digits, '-' or '_'")
	ErrInvalidSettings     = errors.New("queue settings must not be negative")
)
