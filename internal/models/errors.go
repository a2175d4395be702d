package models

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateClaim = errors.New("subdomain already claimed")
)
