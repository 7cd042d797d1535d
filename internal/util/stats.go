package util

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pterm/pterm"
)

// ──────────────────────────────────────────────────────────────────────────────
// Global stats singleton
// ──────────────────────────────────────────────────────────────────────────────

// Stats is the process-wide traffic counter for the tunnel.
//
// "Out" is the device→channel direction (packets read from the virtual
// interface and written to the peer), "In" is channel→device. Byte counts
// are wire bytes, so they include the 2-byte frame header.
var Stats = &stats{}

type stats struct {
	PacketsOut atomic.Int64 // cumulative packets forwarded device→channel
	PacketsIn  atomic.Int64 // cumulative packets forwarded channel→device
	BytesOut   atomic.Int64 // cumulative wire bytes written to the channel
	BytesIn    atomic.Int64 // cumulative wire bytes read from the channel
}

func (s *stats) AddOut(n int) { s.PacketsOut.Add(1); s.BytesOut.Add(int64(n)) }
func (s *stats) AddIn(n int)  { s.PacketsIn.Add(1); s.BytesIn.Add(int64(n)) }

// ──────────────────────────────────────────────────────────────────────────────
// Periodic reporter
// ──────────────────────────────────────────────────────────────────────────────

// StartStatsReporter launches a goroutine that logs tunnel statistics
// every 10 seconds. Quiet intervals are skipped. It stops when ctx is
// cancelled.
func StartStatsReporter(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()

		var prevBytesOut, prevBytesIn, prevPktsOut, prevPktsIn int64
		for {
			select {
			case <-ticker.C:
				bytesOut := Stats.BytesOut.Load()
				bytesIn := Stats.BytesIn.Load()
				pktsOut := Stats.PacketsOut.Load()
				pktsIn := Stats.PacketsIn.Load()

				outS := float64(bytesOut-prevBytesOut) / 10.0
				inS := float64(bytesIn-prevBytesIn) / 10.0
				outP := pktsOut - prevPktsOut
				inP := pktsIn - prevPktsIn

				if outP > 0 || inP > 0 {
					pterm.DefaultLogger.Info(formatStats(outS, inS, outP, inP))
				}

				prevBytesOut = bytesOut
				prevBytesIn = bytesIn
				prevPktsOut = pktsOut
				prevPktsIn = pktsIn

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

// formatStats returns a formatted string of the current stats for display in the logger.
func formatStats(outS, inS float64, outP, inP int64) string {
	return fmt.Sprintf("Out: %s/s | In: %s/s | Pkts: %4d↑ %4d↓",
		formatBytes(outS),
		formatBytes(inS),
		outP,
		inP,
	)
}
