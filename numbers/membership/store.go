package membership

import (
	"errors"
	"fmt"
)

// Store records values and reports whether each one is new.
type Store interface {
	// Insert returns true if v was not present, recording it as present.
	Insert(v uint32) bool
}

// Sized is implemented by stores that can report how many values they hold.
type Sized interface {
	Len() int
}

const (
	BackendHash   = "hash"
	BackendTree   = "tree"
	BackendBitmap = "bitmap"
)

var ErrUnknownBackend = errors.New("unknown membership backend")
var ErrInvalidDomain = errors.New("max value must be greater than zero")

// Backends lists the names accepted by New.
func Backends() []string {
	return []string{BackendHash, BackendTree, BackendBitmap}
}

// New returns the store for the named backend.
// maxValue is validated for every backend so misconfiguration is caught regardless of selection.
func New(backend string, maxValue uint32) (Store, error) {
	if maxValue == 0 {
		return nil, ErrInvalidDomain
	}
	switch backend {
	case BackendHash:
		return NewHashStore(), nil
	case BackendTree:
		return NewTreeStore(), nil
	case BackendBitmap:
		return NewBitmapStore(maxValue), nil
	default:
		return nil, fmt.Errorf("%w: '%s' (valid: %v)", ErrUnknownBackend, backend, Backends())
	}
}
