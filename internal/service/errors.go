package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates an unknown product id or cart line
	ErrNotFound = errors.New("not found")
	// ErrOutOfStock indicates the requested quantity exceeds available stock
	ErrOutOfStock = errors.New("out of stock")
	// ErrInvalidQuantity indicates a non-positive quantity
	ErrInvalidQuantity = errors.New("quantity must be positive")
	// ErrInvalidPaymentMethod indicates an unrecognized payment method
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	// ErrEmptyOrder indicates a commit attempted with no lines
	ErrEmptyOrder = errors.New("order has no items")
	// ErrStorageFailure indicates a transactional step failed and was rolled back
	ErrStorageFailure = errors.New("storage failure")
	// ErrCheckoutInProgress indicates another submission holds the checkout lock
	ErrCheckoutInProgress = errors.New("checkout already in progress")
)

// CommitError reports which step of a sale commit failed. It matches ErrStorageFailure.
type CommitError struct {
	Step string
	Err  error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Step, e.Err)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}

func (e *CommitError) Is(target error) bool {
	return target == ErrStorageFailure
}
