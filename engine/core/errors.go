package core

import (
	"errors"
)

var (
	ErrNilConfiguration = errors.New("configuration must not be nil")
	ErrUnknown          = errors.New("unknown")
)
