package services

import "errors"

// ErrValidation is returned when required fields are missing or empty.
var ErrValidation = errors.New("validation failed")

// ErrInvalidCredentials is returned on any authentication failure. Unknown
// usernames and wrong passwords are deliberately indistinguishable.
var ErrInvalidCredentials = errors.New("invalid credentials")
