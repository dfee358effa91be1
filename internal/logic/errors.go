package logic

import "errors"

var (
	// ErrBadRequest marks caller mistakes that are not domain validation errors.
	ErrBadRequest = errors.New("bad request")
	ErrNotFound   = errors.New("not found")
)
