package engine

import (
	"fmt"
	"io"
	"time"

	"github.com/IshaanNene/gameharvest/internal/artifact"
)

// Summary is the end-of-run report.
type Summary struct {
	Discovered int
	Harvested  int
	Failed     []string
	Dropped    int
	Merged     int
	Orphans    int
	Exported   int
	Patch      *artifact.PatchResult
	Elapsed    time.Duration
}

func (e *Engine) summary(res *artifact.PatchResult) *Summary {
	return &Summary{
		Discovered: int(e.stats.Discovered.Load()),
		Harvested:  int(e.stats.Harvested.Load()),
		Failed:     e.stats.FailedURLs(),
		Dropped:    int(e.stats.Dropped.Load()),
		Merged:     int(e.stats.Merged.Load()),
		Orphans:    int(e.stats.Orphans.Load()),
		Exported:   int(e.stats.Exported.Load()),
		Patch:      res,
		Elapsed:    time.Since(e.stats.StartTime),
	}
}

// Print writes a human-readable report to w.
func (s *Summary) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Harvest Summary ===")
	fmt.Fprintf(w, "Discovered:   %d\n", s.Discovered)
	fmt.Fprintf(w, "Harvested:    %d\n", s.Harvested)
	fmt.Fprintf(w, "Failed:       %d\n", len(s.Failed))
	for _, u := range s.Failed {
		fmt.Fprintf(w, "  - %s\n", u)
	}
	if s.Dropped > 0 {
		fmt.Fprintf(w, "Dropped:      %d\n", s.Dropped)
	}
	fmt.Fprintf(w, "Merged:       %d\n", s.Merged)
	fmt.Fprintf(w, "Orphans:      %d\n", s.Orphans)
	fmt.Fprintf(w, "Exported:     %d\n", s.Exported)
	if s.Patch != nil {
		fmt.Fprintf(w, "Patched:      %s (%d records, backup %s)\n", s.Patch.Path, s.Patch.Records, s.Patch.BackupPath)
	} else {
		fmt.Fprintln(w, "Patched:      no")
	}
	fmt.Fprintf(w, "Elapsed:      %s\n", s.Elapsed.Round(time.Millisecond))
}
