package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstreamUnavailable marks network or non-success responses from
	// the external signing authority; the submission is aborted and no
	// state is mutated.
	ErrUpstreamUnavailable = errors.New("signing authority unavailable")

	// ErrUnknownParticipant marks a referenced identity that does not
	// exist at creation time.
	ErrUnknownParticipant = errors.New("unknown participant")

	// ErrDocumentCorrupt marks a stored PDF that cannot be read or parsed
	// at composition time; the stored file is left untouched.
	ErrDocumentCorrupt = errors.New("document corrupt")

	ErrDocumentNotFound = errors.New("document not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrTemporary        = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
