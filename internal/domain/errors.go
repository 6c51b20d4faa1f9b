package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrChainUnavailable = errors.New("chain unavailable")
	ErrLockHeld         = errors.New("lock already held")
	ErrMarketVerified   = errors.New("market already verified")
	ErrInvalidMarket    = errors.New("invalid market parameters")
	ErrInvalidBet       = errors.New("invalid bet parameters")
)
