package audit

import (
	"errors"
	"fmt"
)

// ErrInvalidDecimals is returned by Normalize when the decimal precision is
// outside the supported range.
var ErrInvalidDecimals = errors.New("invalid decimals")

// InvalidInputError indicates a malformed request (bad mint address, wrong
// number of mints for a comparison). Rejected before any external call.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s", e.Reason)
}

// FetchError indicates an upstream ledger, price, or label source failure on
// the required path. The audit fails as a whole and no snapshot is written.
type FetchError struct {
	Source string // "balances", "supply", "price"
	Mint   string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s for %s: %v", e.Source, e.Mint, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsInvalidInput reports whether err is an InvalidInputError.
func IsInvalidInput(err error) bool {
	var ie *InvalidInputError
	return errors.As(err, &ie)
}

// IsFetchError reports whether err is a FetchError.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}
