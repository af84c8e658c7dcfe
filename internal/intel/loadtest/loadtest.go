// Package loadtest exercises the registry under concurrent multi-party
// load.
//
// The harness simulates many agencies submitting encrypted records at
// once while readers rebuild the view, then verifies the invariant the
// whole design hangs on: every submitted record appears in the index
// exactly once, no matter how the submissions interleaved.
package loadtest

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/identity"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/index"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/schema"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/view"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/workflow"
)

// Harness drives load against one registry deployment.
type Harness struct {
	Engine  *workflow.Engine
	Index   *index.Manager
	Builder *view.Builder
}

// LatencyStats captures performance metrics from a load run.
type LatencyStats struct {
	Min       time.Duration
	Max       time.Duration
	Mean      time.Duration
	P50       time.Duration
	P95       time.Duration
	P99       time.Duration
	TotalOps  int
	Errors    int
	Durations []time.Duration
}

// SubmitResult aggregates one concurrent submission run.
type SubmitResult struct {
	Stats *LatencyStats

	// IDs holds every record id the run successfully submitted.
	IDs []string
}

var crimeTypes = []string{
	"C2 Server",
	"Phishing Domain",
	"Botnet",
	"Dark Market",
	"Exploit Kit",
	"Ransomware Infra",
}

var threatLevels = []schema.ThreatLevel{
	schema.ThreatLow,
	schema.ThreatMedium,
	schema.ThreatMedium, // weighted toward medium, like real feeds
	schema.ThreatHigh,
	schema.ThreatCritical,
}

// RunConcurrentSubmits launches numAgencies goroutines, each submitting
// recordsPerAgency records under its own identity. Latency is recorded
// per submission; failures count as errors and do not abort the run.
func (h *Harness) RunConcurrentSubmits(ctx context.Context, numAgencies, recordsPerAgency int) (*SubmitResult, error) {
	if numAgencies <= 0 || recordsPerAgency <= 0 {
		return nil, fmt.Errorf("numAgencies and recordsPerAgency must be positive")
	}

	type agencyResult struct {
		durations []time.Duration
		ids       []string
		errs      int
	}

	var wg sync.WaitGroup
	results := make(chan agencyResult, numAgencies)

	for i := 0; i < numAgencies; i++ {
		wg.Add(1)
		go func(agencyID int) {
			defer wg.Done()

			actor := fmt.Sprintf("agency-%03d", agencyID)
			actorCtx := identity.WithActor(ctx, actor)
			rng := rand.New(rand.NewSource(int64(agencyID)))

			res := agencyResult{
				durations: make([]time.Duration, 0, recordsPerAgency),
				ids:       make([]string, 0, recordsPerAgency),
			}

			for j := 0; j < recordsPerAgency; j++ {
				req := workflow.SubmitRequest{
					CrimeType:   crimeTypes[rng.Intn(len(crimeTypes))],
					ThreatLevel: threatLevels[rng.Intn(len(threatLevels))],
					Ciphertext:  randomCiphertext(rng),
				}

				start := time.Now()
				id, err := h.Engine.Submit(actorCtx, req)
				res.durations = append(res.durations, time.Since(start))

				if err != nil {
					res.errs++
					continue
				}
				res.ids = append(res.ids, id)
			}

			results <- res
		}(i)
	}

	wg.Wait()
	close(results)

	var allDurations []time.Duration
	var allIDs []string
	var errorCount int
	for res := range results {
		allDurations = append(allDurations, res.durations...)
		allIDs = append(allIDs, res.ids...)
		errorCount += res.errs
	}

	if len(allIDs) == 0 {
		return nil, fmt.Errorf("no submissions succeeded (%d errors)", errorCount)
	}

	stats := computeLatencyStats(allDurations)
	stats.Errors = errorCount
	return &SubmitResult{Stats: stats, IDs: allIDs}, nil
}

// RunConcurrentReaders rebuilds the view from numReaders goroutines for
// the given duration while submissions may be happening. Every snapshot
// is sanity-checked: resolved records must carry an id and a valid
// status.
func (h *Harness) RunConcurrentReaders(ctx context.Context, numReaders int, duration time.Duration) (*LatencyStats, error) {
	ctx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	var wg sync.WaitGroup
	durationsChan := make(chan []time.Duration, numReaders)
	errorsChan := make(chan error, numReaders)

	for i := 0; i < numReaders; i++ {
		wg.Add(1)
		go func(readerID int) {
			defer wg.Done()

			var durations []time.Duration
			for ctx.Err() == nil {
				start := time.Now()
				snap, err := h.Builder.Refresh(ctx)
				if err != nil {
					if ctx.Err() == nil {
						errorsChan <- fmt.Errorf("reader %d refresh failed: %w", readerID, err)
					}
					return
				}
				durations = append(durations, time.Since(start))

				for _, rec := range snap.Records {
					if rec.ID == "" {
						errorsChan <- fmt.Errorf("reader %d saw a record with an empty id", readerID)
						return
					}
					if !rec.Status.IsValid() {
						errorsChan <- fmt.Errorf("reader %d saw record %s with invalid status %q", readerID, rec.ID, rec.Status)
						return
					}
				}

				time.Sleep(time.Millisecond)
			}
			durationsChan <- durations
		}(i)
	}

	wg.Wait()
	close(durationsChan)
	close(errorsChan)

	for err := range errorsChan {
		return nil, err
	}

	var allDurations []time.Duration
	for durations := range durationsChan {
		allDurations = append(allDurations, durations...)
	}
	return computeLatencyStats(allDurations), nil
}

// VerifyIndexIntegrity checks that every id in ids is listed by the
// index exactly once. Concurrent submitters racing the index append is
// precisely the lost-update hazard the coordinator exists to prevent,
// so any missing or duplicated id is a correctness failure, not noise.
func (h *Harness) VerifyIndexIntegrity(ctx context.Context, ids []string) error {
	listed, err := h.Index.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list index: %w", err)
	}

	counts := make(map[string]int, len(listed))
	for _, id := range listed {
		counts[id]++
	}

	var missing, duplicated int
	for _, id := range ids {
		switch counts[id] {
		case 0:
			missing++
		case 1:
		default:
			duplicated++
		}
	}

	if missing > 0 || duplicated > 0 {
		return fmt.Errorf("index integrity violated: %d of %d submitted ids missing, %d duplicated (index holds %d entries)",
			missing, len(ids), duplicated, len(listed))
	}
	return nil
}

// randomCiphertext produces an opaque payload between 64 bytes and 4KiB.
// The content is meaningless; the harness only cares that sizes vary.
func randomCiphertext(rng *rand.Rand) []byte {
	size := 64 + rng.Intn(4032)
	buf := make([]byte, size)
	rng.Read(buf)
	return buf
}

// computeLatencyStats calculates distribution statistics from a slice of
// durations.
func computeLatencyStats(durations []time.Duration) *LatencyStats {
	if len(durations) == 0 {
		return &LatencyStats{}
	}

	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}

	return &LatencyStats{
		Min:       sorted[0],
		Max:       sorted[len(sorted)-1],
		Mean:      sum / time.Duration(len(sorted)),
		P50:       sorted[len(sorted)*50/100],
		P95:       sorted[len(sorted)*95/100],
		P99:       sorted[len(sorted)*99/100],
		TotalOps:  len(sorted),
		Durations: sorted,
	}
}

// String formats the stats for operator output.
func (s *LatencyStats) String() string {
	return fmt.Sprintf("ops=%d errors=%d min=%v p50=%v mean=%v p95=%v p99=%v max=%v",
		s.TotalOps, s.Errors, s.Min, s.P50, s.Mean, s.P95, s.P99, s.Max)
}
