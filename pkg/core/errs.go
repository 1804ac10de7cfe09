package core

import "errors"

var (
	ErrMisalignedBars  = errors.New("bar series lengths differ")
	ErrNotFound        = errors.New("not found")
	ErrInvalidSettings = errors.New("invalid scan settings")
)
