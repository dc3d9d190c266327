package app

import "errors"

// Sentinel errors the server package maps onto HTTP statuses. Anything else
// coming out of the engine is a storage or database failure and surfaces as a
// generic internal error.
var (
	ErrBadRequest = errors.New("bad request")
	ErrNoFile     = errors.New("no file uploaded")
	ErrNotFound   = errors.New("image does not exist")
)
