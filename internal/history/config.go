package history

import (
	"fmt"

	"codeberg.org/mutker/sensorchart/internal/errors"
)

const (
	defaultThreshold     = 1000
	defaultBucketMinutes = 15
	defaultMaxPoints     = 3000
)

// Config holds the downsampling knobs.
type Config struct {
	// Threshold is the raw record count at which loads escalate to a
	// downsampled read.
	Threshold int
	// BucketMinutes is the minimum bucket width of downsampled reads.
	BucketMinutes int
	// MaxPoints caps the number of records a downsampled load returns.
	MaxPoints int
}

func DefaultConfig() Config {
	return Config{
		Threshold:     defaultThreshold,
		BucketMinutes: defaultBucketMinutes,
		MaxPoints:     defaultMaxPoints,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	switch {
	case c.Threshold <= 0:
		return errFactory.WithData(ErrInvalidConfig, fmt.Sprintf("threshold must be positive, got %d", c.Threshold))
	case c.BucketMinutes <= 0:
		return errFactory.WithData(ErrInvalidConfig, fmt.Sprintf("bucket minutes must be positive, got %d", c.BucketMinutes))
	case c.MaxPoints < 2:
		return errFactory.WithData(ErrInvalidConfig, fmt.Sprintf("max points must be at least 2, got %d", c.MaxPoints))
	}
	return nil
}
