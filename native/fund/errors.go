package fund

import "errors"

var (
	// ErrNotFound is returned when an operation references an investor that
	// was never onboarded.
	ErrNotFound = errors.New("fund: investor not found")
	// ErrAlreadyExists is returned when onboarding an identity that is
	// already on the active-address index.
	ErrAlreadyExists = errors.New("fund: investor already onboarded")
	// ErrInvalidArgument is returned for out-of-range types, rates and
	// values, including orchestrator rotations to the null or current
	// identity.
	ErrInvalidArgument = errors.New("fund: invalid argument")
	// ErrInvalidClass is returned when a share class index is out of range.
	ErrInvalidClass = errors.New("fund: share class out of range")
	// ErrNonZeroBalance is returned when removing an investor whose
	// balances are not fully drained.
	ErrNonZeroBalance = errors.New("fund: investor balances not drained")
	// ErrSharesOutstanding is returned when changing the fee schedule of a
	// class that already has shares outstanding.
	ErrSharesOutstanding = errors.New("fund: share class has shares outstanding")
	// ErrUnauthorized is returned when the caller fails the operation's
	// access predicate.
	ErrUnauthorized = errors.New("fund: unauthorized")
	// ErrDivisionByZero is returned when a NAV computation is requested
	// for a zero share supply.
	ErrDivisionByZero = errors.New("fund: division by zero")
)

var (
	errNilLedger = errors.New("fund: ledger not initialised")
	errNilEngine = errors.New("fund: engine not initialised")
	errNilState  = errors.New("fund: state not configured")
)
