// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ingest

import (
	"context"
	"log/slog"
	"time"
)

// Backoff selects how retry delays grow across attempts.
type Backoff int

const (
	// BackoffExponential doubles the delay on each retry.
	BackoffExponential Backoff = iota
	// BackoffLinear multiplies the base delay by the attempt number.
	BackoffLinear
)

// Policy describes a bounded retry schedule.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Backoff     Backoff
}

// Delay returns the sleep duration after the given failed attempt
// (1-based). Exponential policies double the base delay per attempt,
// linear policies scale it by the attempt number.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	switch p.Backoff {
	case BackoffLinear:
		return p.BaseDelay * time.Duration(attempt)
	default:
		delay := p.BaseDelay
		for i := 1; i < attempt; i++ {
			delay *= 2
		}
		return delay
	}
}

// Do retries an operation according to the policy.
// Returns the error from the last attempt if all attempts fail.
func (p Policy) Do(ctx context.Context, operation func() error) error {
	if p.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		// Check context before attempting
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = operation()
		if lastErr == nil {
			if attempt > 1 {
				slog.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return nil
		}

		slog.Debug("operation failed, will retry", "attempt", attempt, "maxAttempts", p.MaxAttempts, "error", lastErr)

		// Don't sleep after the last attempt
		if attempt == p.MaxAttempts {
			break
		}

		if err := sleepCtx(ctx, p.Delay(attempt)); err != nil {
			return err
		}
	}

	return lastErr
}

// sleepCtx sleeps for the given duration, returning early with the
// context's error if it is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
