package service

import (
	"errors"

	"github.com/BrandonDHaskell/camrelay/internal/camrelay/store"
)

var (
	ErrInvalidDeviceID = errors.New("device_id is required")

	// ErrDeviceNotFound is the store sentinel, re-exported so callers of the
	// service do not need to import the store package to match it.
	ErrDeviceNotFound = store.ErrDeviceNotFound

	ErrNoFrame = errors.New("no frame")
)
