package patient

import "errors"

var (
	ErrPatientNotFound = errors.New("patient not found")
	ErrRefIDRequired   = errors.New("patient reference id is required")
	ErrNameRequired    = errors.New("patient name is required")
	ErrInvalidEmail    = errors.New("invalid patient email")
	ErrInvalidPhone    = errors.New("invalid patient phone number")
)
