package domain

import "errors"

// Storage-level errors. Usecases translate them into apperror values.
var (
	ErrNotFound  = errors.New("resource not found")
	ErrDuplicate = errors.New("resource already exists")
)
