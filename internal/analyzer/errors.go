package analyzer

import "errors"

var (
	ErrInvalidExpiration = errors.New("invalid expiration date")
	ErrUnknownTicker     = errors.New("unknown ticker")
	ErrNoExpirations     = errors.New("no listed expirations")
)
