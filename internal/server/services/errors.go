package services

import "errors"

// Validation errors. The HTTP layer answers them with 400.
var (
	ErrInvalidEmail    = errors.New("invalid email")
	ErrInvalidListing  = errors.New("invalid listing")
	ErrInvalidImageKey = errors.New("image key does not belong to user")
)
