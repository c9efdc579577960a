package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
)

// Config configures retry behavior with exponential backoff
type Config struct {
	MaxRetries int           `json:"max_retries"` // Maximum number of retry attempts (default: 3)
	BaseDelay  time.Duration `json:"base_delay"`  // Base delay between retries (default: 1s)
	MaxDelay   time.Duration `json:"max_delay"`   // Maximum delay between retries (default: 30s)
	Multiplier float64       `json:"multiplier"`  // Exponential backoff multiplier (default: 2.0)
	Jitter     bool          `json:"jitter"`      // Add random jitter to prevent thundering herd (default: true)
}

// DefaultConfig returns a retry configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
		Multiplier: 2.0,
		Jitter:     true,
	}
}

// WithBackoff executes an operation with exponential backoff retry logic.
// It returns nil on the first success, the last error after retries are
// exhausted, or the context error when cancelled mid-backoff.
func WithBackoff(ctx context.Context, config Config, name string, operation func() error) error {
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		lastErr = operation()
		if lastErr == nil {
			if attempt > 0 {
				log.Debug().Str("op", name).Int("retries", attempt).Msg("operation succeeded after retry")
			}
			return nil
		}

		if attempt >= config.MaxRetries {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		delay := calculateDelay(config, attempt)
		log.Debug().Str("op", name).Err(lastErr).
			Int("attempt", attempt+1).Dur("delay", delay).
			Msg("operation failed, backing off")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	log.Warn().Str("op", name).Err(lastErr).
		Int("attempts", config.MaxRetries+1).
		Msg("operation failed after all retries")
	return lastErr
}

// calculateDelay calculates the delay for the next retry attempt using exponential backoff
func calculateDelay(config Config, attempt int) time.Duration {
	delay := float64(config.BaseDelay) * math.Pow(config.Multiplier, float64(attempt))
	if delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}
	if config.Jitter {
		// up to 25% random jitter
		delay += delay * 0.25 * rand.Float64()
	}
	return time.Duration(delay)
}
