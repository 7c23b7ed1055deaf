package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so callers can decide between aborting and skipping.
type ErrorKind int

// Error kinds.
const (
	KindPoolMismatch ErrorKind = iota + 1
	KindPoolIncomplete
	KindStructuralDamage
	KindUnsupportedFeature
	KindIO
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindPoolMismatch:
		return "pool mismatch"
	case KindPoolIncomplete:
		return "pool incomplete"
	case KindStructuralDamage:
		return "structural damage"
	case KindUnsupportedFeature:
		return "unsupported feature"
	case KindIO:
		return "I/O failure"
	}
	return "unknown error"
}

// FsError is a classified filesystem error.
type FsError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *FsError) Error() string {
	msg := e.Kind.String()
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *FsError) Unwrap() error {
	return e.Cause
}

// Is matches any FsError of the same kind, so the sentinels below work with errors.Is.
func (e *FsError) Is(target error) bool {
	t, ok := target.(*FsError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Cause == nil
}

// Sentinels for errors.Is.
var (
	ErrPoolMismatch       = &FsError{Kind: KindPoolMismatch}
	ErrPoolIncomplete     = &FsError{Kind: KindPoolIncomplete}
	ErrStructuralDamage   = &FsError{Kind: KindStructuralDamage}
	ErrUnsupportedFeature = &FsError{Kind: KindUnsupportedFeature}
	ErrIO                 = &FsError{Kind: KindIO}
)

// NewDamageError returns a structural damage error.
func NewDamageError(format string, args ...any) error {
	return &FsError{Kind: KindStructuralDamage, Message: fmt.Sprintf(format, args...)}
}

// NewUnsupportedError returns an unsupported feature error.
func NewUnsupportedError(format string, args ...any) error {
	return &FsError{Kind: KindUnsupportedFeature, Message: fmt.Sprintf(format, args...)}
}

// NewPoolMismatchError returns a pool mismatch error.
func NewPoolMismatchError(format string, args ...any) error {
	return &FsError{Kind: KindPoolMismatch, Message: fmt.Sprintf(format, args...)}
}

// NewIOError wraps a reader failure.
func NewIOError(cause error, format string, args ...any) error {
	return &FsError{Kind: KindIO, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// PoolIncompleteError reports how many devices were supplied against the declared count.
type PoolIncompleteError struct {
	Found    uint64
	Declared uint64
}

func (e *PoolIncompleteError) Error() string {
	return fmt.Sprintf("%s: found %d device(s), superblock declares %d", KindPoolIncomplete, e.Found, e.Declared)
}

// Is makes errors.Is(err, ErrPoolIncomplete) true.
func (e *PoolIncompleteError) Is(target error) bool {
	t, ok := target.(*FsError)
	return ok && t.Kind == KindPoolIncomplete
}

// KindOf returns the kind of a classified error in err's tree, or zero. Pool kinds win
// over damage, damage over unsupported features and I/O.
func KindOf(err error) ErrorKind {
	for _, sentinel := range []*FsError{ErrPoolMismatch, ErrPoolIncomplete, ErrStructuralDamage, ErrUnsupportedFeature, ErrIO} {
		if errors.Is(err, sentinel) {
			return sentinel.Kind
		}
	}
	return 0
}
