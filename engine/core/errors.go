package core

import (
	"errors"
)

var (
	// ErrInvalidHandle is returned by write-path texture operations when the
	// handle has no live record. Read paths (get/delete/rebind) stay
	// permissive and never return this.
	ErrInvalidHandle = errors.New("no live texture record for handle")

	// ErrResourceExhaustion wraps a device out-of-memory condition. It is
	// fatal for the current frame submission and never retried here.
	ErrResourceExhaustion = errors.New("gpu resource allocation failed")

	// ErrLayoutViolation marks a copy or sampling request against an image
	// whose layout does not permit it. Unreachable as long as all layout
	// mutation goes through the texture system.
	ErrLayoutViolation = errors.New("image layout does not permit the requested operation")
)
