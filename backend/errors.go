package backend

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned when a rate is requested
	// before Connect succeeded or after Disconnect
	ErrNotConnected = errors.New("not connected to the backend api")

	// ErrUnknownAccount matches every *UnknownAccountError
	ErrUnknownAccount = errors.New("unknown account")

	// ErrZeroPrice is returned when the destination
	// asset is quoted at zero
	ErrZeroPrice = errors.New("destination asset price is zero")
)

// UnknownAccountError reports an account
// the account resolver does not know about
type UnknownAccountError struct {
	Role      string // "source" or "destination"
	AccountID string
}

func (e *UnknownAccountError) Error() string {
	return fmt.Sprintf("unable to fetch account info for %s account. accountId=%s", e.Role, e.AccountID)
}

func (e *UnknownAccountError) Is(target error) bool {
	return target == ErrUnknownAccount
}
