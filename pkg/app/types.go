package app

import (
	"errors"
	"fmt"

	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// ImageTarget selects the device images of one pool
type ImageTarget struct {
	Paths []string

	// Start of the filesystem inside every image, in sectors of SectorSize bytes
	OffsetSectors uint64
	SectorSize    uint64
}

// Validate ensures the image target is usable
func (it *ImageTarget) Validate() error {
	if len(it.Paths) == 0 {
		return errors.New("at least one image path is required")
	}
	seen := make(map[string]bool, len(it.Paths))
	for _, p := range it.Paths {
		if p == "" {
			return errors.New("image path must not be empty")
		}
		if seen[p] {
			return fmt.Errorf("image %q given twice", p)
		}
		seen[p] = true
	}
	if it.SectorSize == 0 {
		return errors.New("sector size must not be zero")
	}
	if it.OffsetSectors != 0 && it.OffsetSectors*it.SectorSize/it.SectorSize != it.OffsetSectors {
		return fmt.Errorf("offset of %d sectors overflows", it.OffsetSectors)
	}
	return nil
}

// OffsetBytes returns the image offset in bytes
func (it *ImageTarget) OffsetBytes() uint64 {
	return it.OffsetSectors * it.SectorSize
}

// CommonError represents application-level errors
type CommonError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CommonError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *CommonError) Unwrap() error {
	return e.Cause
}

// Common error codes
const (
	ErrCodeInvalidInput       = "INVALID_INPUT"
	ErrCodePoolMismatch       = "POOL_MISMATCH"
	ErrCodePoolIncomplete     = "POOL_INCOMPLETE"
	ErrCodeStructuralDamage   = "STRUCTURAL_DAMAGE"
	ErrCodeUnsupportedFeature = "UNSUPPORTED_FEATURE"
	ErrCodeIOFailure          = "IO_FAILURE"
	ErrCodeInternal           = "INTERNAL"
)

var exitCodes = map[string]int{
	ErrCodeInvalidInput:       1,
	ErrCodeInternal:           1,
	ErrCodePoolMismatch:       2,
	ErrCodePoolIncomplete:     3,
	ErrCodeStructuralDamage:   4,
	ErrCodeUnsupportedFeature: 5,
	ErrCodeIOFailure:          6,
}

var kindCodes = map[types.ErrorKind]string{
	types.KindPoolMismatch:       ErrCodePoolMismatch,
	types.KindPoolIncomplete:     ErrCodePoolIncomplete,
	types.KindStructuralDamage:   ErrCodeStructuralDamage,
	types.KindUnsupportedFeature: ErrCodeUnsupportedFeature,
	types.KindIO:                 ErrCodeIOFailure,
}

// NewError creates a new CommonError
func NewError(code, message string, cause error) *CommonError {
	return &CommonError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Classify wraps err in a CommonError whose code reflects the filesystem error kind
// found in its chain. Errors that are already classified are returned unchanged.
func Classify(message string, err error) *CommonError {
	if err == nil {
		return nil
	}
	var ce *CommonError
	if errors.As(err, &ce) {
		return ce
	}
	code, ok := kindCodes[types.KindOf(err)]
	if !ok {
		code = ErrCodeInternal
	}
	return NewError(code, message, err)
}

// ExitCode returns the process exit status for err, zero for nil
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ce *CommonError
	if !errors.As(err, &ce) {
		ce = Classify("", err)
	}
	if code, ok := exitCodes[ce.Code]; ok {
		return code
	}
	return 1
}
