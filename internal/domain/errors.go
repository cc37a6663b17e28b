package domain

import "errors"

var (
	// ErrDuplicateContent is returned by ingestion when the payload
	// fingerprint is already stored. Not retried.
	ErrDuplicateContent = errors.New("duplicate content: fingerprint already exists")

	// ErrMalformedPayload is returned when a stream entry payload cannot be
	// parsed into a structured record.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrMissingIdentifiers is returned when a stream entry lacks the
	// identifiers its origin service is required to carry.
	ErrMissingIdentifiers = errors.New("missing required identifiers")

	// ErrOutOfOrder is returned when an entry references an identifier that
	// has not yet been recorded by an upstream trade-capture event.
	ErrOutOfOrder = errors.New("out-of-order delivery: referenced identifier not recorded yet")
)
