// Package utils holds small helpers shared by the services and the CLI.
package utils

import (
	"time"

	"github.com/rs/zerolog"
)

// SlowOperationThreshold is the duration after which a timed operation is
// logged at Warn. Ledger writes wait at most the busy timeout for the lock,
// so anything slower points at contention or a very long history.
var SlowOperationThreshold = 2 * time.Second

// OperationTimer provides a defer-friendly way to measure operation duration
//
// Usage:
//
//	func (s *Service) RecordTransaction(...) {
//	    defer utils.OperationTimer("record_transaction", s.log)()
//	}
func OperationTimer(operation string, log zerolog.Logger) func() {
	start := time.Now()

	return func() {
		duration := time.Since(start)

		log.Debug().
			Str("operation", operation).
			Dur("duration_ms", duration).
			Msg("Operation completed")

		if duration > SlowOperationThreshold {
			log.Warn().
				Str("operation", operation).
				Dur("duration", duration).
				Msg("Slow operation detected")
		}
	}
}
