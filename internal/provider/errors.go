package provider

import "errors"

var (
	ErrNotFound      = errors.New("no data for this ticker/expiration")
	ErrRateLimited   = errors.New("rate limited by provider")
	ErrBadResponse   = errors.New("unexpected provider response")
	ErrBadExpiration = errors.New("invalid expiration date")
)
