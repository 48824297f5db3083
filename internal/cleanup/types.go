package cleanup

import "time"

// Config holds configuration for conversation log housekeeping.
type Config struct {
	Retention     time.Duration // 0 keeps every turn
	CheckInterval time.Duration // default 1h
}

// DefaultConfig returns sane defaults.
func DefaultConfig() Config {
	return Config{
		CheckInterval: 1 * time.Hour,
	}
}

// Report summarizes one housekeeping pass.
type Report struct {
	Pruned  int64
	DBBytes int64
}
