package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrRateLimited      = errors.New("rate limited")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrLockHeld         = errors.New("lock already held")
	ErrCacheMiss        = errors.New("cache miss")
	ErrAllSourcesFailed = errors.New("all upstream sources failed")
	ErrUnsupportedSport = errors.New("only NFL games are supported")
	ErrInvalidPlatform  = errors.New("unsupported platform")
)
