package domain

import "errors"

var (
	ErrNotConfigured = errors.New("GitLab settings not configured")
	ErrInvalidInput  = errors.New("invalid input")
)
