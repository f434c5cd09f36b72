package scheduler

import "errors"

var (
	// ErrSweeperAlreadyRunning is returned when starting a sweeper twice
	ErrSweeperAlreadyRunning = errors.New("overdue sweeper is already running")

	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")
)
