package service

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrPubNotFound          = errors.New("pub not found")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrRegistrationFailed   = errors.New("registration failed: username or email already exists")
	ErrNotPubOwner          = errors.New("only the pub owner may perform this action")
	ErrPubAccessDenied      = errors.New("pub is private")
	ErrInvalidCanvasSize    = errors.New("canvas dimensions out of range")
	ErrInvalidEdit          = errors.New("invalid edit data")
	ErrInvalidMessage       = errors.New("invalid chat message")
	ErrInternalServer       = errors.New("internal server error")
)
