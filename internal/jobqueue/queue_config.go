// Package jobqueue configuration - tunable parameters for the River-based
// draft queue.
//
// Increase MaxWorkers for more concurrent agent subprocesses; each running
// job holds one subprocess and one database connection. JobTimeout must stay
// above the agent run timeout or jobs get cancelled mid-run.
package jobqueue

import (
	"time"

	"github.com/riverqueue/river"
)

// QueueConfig holds the tunable parameters of the draft queue.
type QueueConfig struct {
	// MaxWorkers is the number of concurrent workers processing draft jobs.
	MaxWorkers int

	// MaxRetries is the maximum number of attempts per job.
	MaxRetries int

	// JobTimeout bounds one job run, agent subprocess included.
	JobTimeout time.Duration
}

// DefaultQueueConfig returns the default draft queue configuration.
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		MaxWorkers: 4,
		MaxRetries: 3,
		JobTimeout: 5 * time.Minute,
	}
}

// RiverQueueConfig converts our config to River's queue configuration format
func (c *QueueConfig) RiverQueueConfig() map[string]river.QueueConfig {
	return map[string]river.QueueConfig{
		river.QueueDefault: {
			MaxWorkers: c.MaxWorkers,
		},
	}
}
