package models

import (
	"fmt"
	"time"
)

// PurgeStats summarises one purge run.
type PurgeStats struct {
	Scanned   int
	Purged    int
	Skipped   int
	Failed    int
	StartTime time.Time
	EndTime   time.Time
}

// Summary renders the stats for a single log line.
func (s *PurgeStats) Summary() string {
	return fmt.Sprintf("scanned=%d purged=%d skipped=%d failed=%d duration=%s",
		s.Scanned, s.Purged, s.Skipped, s.Failed, s.EndTime.Sub(s.StartTime))
}
