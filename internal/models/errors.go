package models

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyInUse  = errors.New("email already in use")
	ErrNotFound           = errors.New("not found")
	ErrAlreadyAccepted    = errors.New("service request already accepted")
	ErrInvalidID          = errors.New("invalid id")
)
