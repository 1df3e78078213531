package handler

import "errors"

// Sentinel errors surfaced out of multi-statement transactions so the
// handler can map them to specific HTTP statuses
var (
	errLastSystem  = errors.New("last system cannot be deleted")
	errSystemOrder = errors.New("systems must be deleted in descending order")
)
