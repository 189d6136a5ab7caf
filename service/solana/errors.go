package solana

import (
	"errors"
	"fmt"
)

// Error conditions surfaced while fetching and extracting a transaction.
// Callers match them with errors.Is.
var (
	ErrInvalidSignature    = errors.New("invalid signature")
	ErrFetchFailed         = errors.New("fetch failed")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrNoMessage           = errors.New("no message")
	ErrMissingMetadata     = errors.New("missing metadata")
	ErrMalformedAmount     = errors.New("malformed amount")
	ErrMissingOwner        = errors.New("missing owner")
	ErrMalformedRecord     = errors.New("malformed record")
)

// EntryError is a failure tied to a single token balance entry.
type EntryError struct {
	Position     int // position in the post token balance list
	AccountIndex int
	Err          error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("token balance %d (account index %d): %v", e.Position, e.AccountIndex, e.Err)
}

func (e *EntryError) Unwrap() error {
	return e.Err
}

// Condition names the taxonomy entry err belongs to, for diagnostics and metric labels.
// It returns "unknown" for errors outside the taxonomy.
func Condition(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, ErrFetchFailed):
		return "fetch_failed"
	case errors.Is(err, ErrNoMessage):
		return "no_message"
	case errors.Is(err, ErrMissingMetadata):
		return "missing_metadata"
	case errors.Is(err, ErrMalformedAmount):
		return "malformed_amount"
	case errors.Is(err, ErrMissingOwner):
		return "missing_owner"
	case errors.Is(err, ErrMalformedRecord):
		return "malformed_record"
	default:
		return "unknown"
	}
}
