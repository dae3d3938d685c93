package apperr

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidGPX         = errors.New("invalid gpx")
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrMissingAPIKey      = errors.New("google maps api key required")
	ErrUnsupportedSource  = errors.New("unsupported route source")
	ErrInvalidPath        = errors.New("invalid library path")
)
