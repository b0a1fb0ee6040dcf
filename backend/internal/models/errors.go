package models

import "errors"

var (
	// ErrValidation is returned for malformed input such as an empty URI or a negative price.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned for an unknown asset or listing id.
	ErrNotFound = errors.New("not found")

	// ErrNotOwner is returned when the caller does not own the asset.
	ErrNotOwner = errors.New("not the asset owner")

	// ErrInsufficientFee is returned when the fee paid differs from the listing fee.
	ErrInsufficientFee = errors.New("listing fee mismatch")

	// ErrIncorrectPayment is returned when the payment differs from the asking price.
	ErrIncorrectPayment = errors.New("payment does not match asking price")

	// ErrAlreadySold is returned when a sold listing is bought again.
	ErrAlreadySold = errors.New("listing already sold")
)
