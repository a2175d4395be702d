package service

import (
	"errors"
	"fmt"
)

var (
	// ErrSubdomainTaken means a live claim already holds the pair.
	ErrSubdomainTaken = errors.New("subdomain already taken")

	// ErrClaimNotFound covers both a missing claim and a claim owned by
	// someone else; callers must not tell the two apart.
	ErrClaimNotFound = errors.New("subdomain not found")

	// ErrInvalidLabel means the requested name is not a valid DNS label.
	ErrInvalidLabel = errors.New("invalid subdomain name")
)

// ProviderError wraps a failure from the remote DNS provider. The operation
// it interrupted is abandoned; the user retries by reissuing the command.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("dns provider: %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
