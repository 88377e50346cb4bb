package util

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// ──────────────────────────────────────────────────────────────────────────────
// Global stats singleton
// ──────────────────────────────────────────────────────────────────────────────

// Stats is the process-wide event/traffic counter for the current session.
var Stats = &stats{}

type stats struct {
	EventsSent atomic.Int64 // cumulative events written to the channel
	EventsRecv atomic.Int64 // cumulative events read from the channel
	BytesSent  atomic.Int64 // cumulative serialized bytes sent
	BytesRecv  atomic.Int64 // cumulative serialized bytes received
}

func (s *stats) AddSent(n int) { s.EventsSent.Add(1); s.BytesSent.Add(int64(n)) }
func (s *stats) AddRecv(n int) { s.EventsRecv.Add(1); s.BytesRecv.Add(int64(n)) }

// ──────────────────────────────────────────────────────────────────────────────
// Periodic reporter
// ──────────────────────────────────────────────────────────────────────────────

// StartStatsReporter launches a goroutine that logs channel statistics
// every 10 seconds while traffic is flowing. It stops when ctx is cancelled.
func StartStatsReporter(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()

		var prevSent, prevRecv, prevOut, prevIn int64
		for {
			select {
			case <-ticker.C:
				out := Stats.EventsSent.Load()
				in := Stats.EventsRecv.Load()
				sent := Stats.BytesSent.Load()
				recv := Stats.BytesRecv.Load()

				if out != prevOut || in != prevIn {
					LogInfo("events: %d↑ %d↓ | %s out, %s in",
						out-prevOut, in-prevIn,
						formatBytes(float64(sent-prevSent)),
						formatBytes(float64(recv-prevRecv)),
					)
				}

				prevSent = sent
				prevRecv = recv
				prevOut = out
				prevIn = in

			case <-ctx.Done():
				return
			}
		}
	}()
}

// byteUnits defines the units for formatting byte counts in a human-readable way.
var byteUnits = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB"}

// formatBytes formats a byte count into a human-readable string with fixed width (exactly 8 chars)
// for example: "99.0   B", " 1.5 KiB", " 0.1 MiB", "98.9 GiB", etc.
func formatBytes(b float64) string {
	unitIdx := 0

	// to prevent "100.0 KiB", which is 9 chars
	for b > 99 && unitIdx < 5 {
		b /= 1024
		unitIdx++
	}

	return fmt.Sprintf("%4.1f %3s", b, byteUnits[unitIdx])
}
