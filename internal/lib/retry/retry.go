// Package retry provides bounded retries with exponential backoff for
// transient failures, such as lock-wait timeouts on a contended event row.
package retry

import (
	"context"
	"time"
)

type Strategy struct {
	Attempts int           `yaml:"attempts" env-default:"3"`
	Delay    time.Duration `yaml:"delay" env-default:"100ms"`
	Backoff  float64       `yaml:"backoff" env-default:"2"`
}

// Do runs op up to s.Attempts times, sleeping between attempts with the
// delay multiplied by Backoff each round. Only errors for which retryable
// returns true are retried; everything else returns immediately. The last
// error is returned when attempts run out or the context is done.
func Do(ctx context.Context, s Strategy, retryable func(error) bool, op func() error) error {
	attempts := s.Attempts
	if attempts < 1 {
		attempts = 1
	}

	delay := s.Delay
	backoff := s.Backoff
	if backoff < 1 {
		backoff = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = op(); err == nil {
			return nil
		}

		if !retryable(err) || attempt == attempts {
			return err
		}

		select {
		case <-ctx.Done():
			return err
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * backoff)
	}

	return err
}
