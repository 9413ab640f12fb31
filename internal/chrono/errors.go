package chrono

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned when an operation needs a signing identity
	// and none is connected.
	ErrNotConnected = errors.New("no connected signing identity")

	// ErrSubmissionFailed is returned when the ledger rejects a write or the
	// write is never confirmed. Submissions are safe to retry by the user.
	ErrSubmissionFailed = errors.New("seal submission failed")

	// ErrMalformedPayload marks a ledger payload that cannot be decoded.
	ErrMalformedPayload = errors.New("malformed seal payload")

	// ErrNotFound is returned when a lookup matches nothing.
	ErrNotFound = errors.New("seal not found")

	// ErrMediaResolution marks a single media id that could not be resolved.
	ErrMediaResolution = errors.New("media resolution failed")

	// ErrMediaNotFound is returned by a MediaStore for an unknown id.
	ErrMediaNotFound = errors.New("media not found")

	// ErrQueryFailed is returned when the indexer cannot be queried.
	ErrQueryFailed = errors.New("seal query failed")

	// ErrInvalidDraft is returned when a draft fails validation before submission.
	ErrInvalidDraft = errors.New("invalid seal draft")

	// ErrWrongNetwork is returned when the wallet is on an unexpected chain.
	ErrWrongNetwork = errors.New("wallet is connected to the wrong network")
)

// DecodeError describes why a ledger payload could not be turned into a seal.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decoding seal: %s: %v", e.Reason, e.Err)
	}
	return "decoding seal: " + e.Reason
}

func (e *DecodeError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrMalformedPayload, e.Err}
	}
	return []error{ErrMalformedPayload}
}
