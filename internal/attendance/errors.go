package attendance

import (
	"errors"
	"fmt"
)

var (
	// ErrResourceUnavailable means the camera or frame source cannot be opened.
	ErrResourceUnavailable = errors.New("frame source unavailable")
	// ErrInsufficientSamples means a capture holds fewer samples than the enrollment minimum.
	ErrInsufficientSamples = errors.New("insufficient samples")
	ErrDuplicateIdentity   = errors.New("identity already exists")
	ErrInvalidName         = errors.New("name must contain only letters and spaces")
	ErrInvalidIdentity     = errors.New("invalid identity id")
	ErrNoTrainingData      = errors.New("no enrolled identities to train on")
	// ErrStorage means the persistence layer failed, as opposed to returning no data.
	ErrStorage            = errors.New("storage failure")
	ErrNoPendingIdentity  = errors.New("no pending identity")
	ErrNotCapturing       = errors.New("capture session is not capturing")
	ErrTrainingInProgress = errors.New("training already in progress")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidCourse      = errors.New("invalid course")
	// ErrFieldTooLong means an identity attribute exceeds its stored width.
	ErrFieldTooLong = errors.New("field too long")
)

func storageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
