package ledger

import "errors"

// Typed failures surfaced by Pool operations. Every failure leaves the pool
// state exactly as it was before the call; none are fatal to the pool.
var (
	// ErrInsufficientContribution rejects a deposit whose USD value is below
	// the pool's minimum threshold. The caller may retry with a larger amount.
	ErrInsufficientContribution = errors.New("contribution below minimum USD threshold")

	// ErrUnauthorized rejects a withdrawal attempted by a non-owner identity.
	ErrUnauthorized = errors.New("caller is not the pool owner")

	// ErrTransferFailed reports that the value transfer step of an operation
	// failed; all bookkeeping performed by the operation has been rolled back.
	ErrTransferFailed = errors.New("value transfer failed")

	// ErrIndexOutOfRange rejects a contributor index query past the end of
	// the contributor list. This is a caller programming error.
	ErrIndexOutOfRange = errors.New("contributor index out of range")
)
