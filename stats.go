package treefs

import (
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Stats contains filesystem statistics.
type Stats struct {
	Mountpoint string
	Operations uint64
	BytesRead  uint64
	Errors     uint64
}

// statsCollector tracks monotonic operation counters. Updates are
// atomic adds from concurrent callback threads; the reporter reads
// them with atomic loads.
type statsCollector struct {
	operations atomic.Uint64
	bytesRead  atomic.Uint64
	errors     atomic.Uint64
}

// newStatsCollector creates a new statistics collector.
func newStatsCollector() *statsCollector {
	return &statsCollector{}
}

// recordOperation increments the operation counter.
func (s *statsCollector) recordOperation() {
	s.operations.Add(1)
}

// recordRead adds to the bytes-read counter.
func (s *statsCollector) recordRead(n int) {
	s.bytesRead.Add(uint64(n))
}

// recordError increments the error counter.
func (s *statsCollector) recordError() {
	s.errors.Add(1)
}

// snapshot returns current statistics.
func (s *statsCollector) snapshot() Stats {
	return Stats{
		Operations: s.operations.Load(),
		BytesRead:  s.bytesRead.Load(),
		Errors:     s.errors.Load(),
	}
}

// statsReporter samples the counters once per second and logs the
// per-interval IOPS and throughput. When reporting is disabled the
// reporter is never constructed and imposes no cost.
type statsReporter struct {
	stats *statsCollector
	log   *logrus.Logger
	san   *sanitizer
	stop  chan struct{}
	done  chan struct{}
}

// startStatsReporter launches the reporting goroutine. san may be nil;
// when set, sanitizer cache hit rates are logged at Debug.
func startStatsReporter(stats *statsCollector, log *logrus.Logger, san *sanitizer) *statsReporter {
	r := &statsReporter{
		stats: stats,
		log:   log,
		san:   san,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go r.run()
	return r
}

// Stop terminates the reporter and waits for its goroutine to exit.
// Safe to call more than once.
func (r *statsReporter) Stop() {
	select {
	case <-r.stop:
	default:
		close(r.stop)
	}
	<-r.done
}

func (r *statsReporter) run() {
	defer close(r.done)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	last := r.stats.snapshot()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			cur := r.stats.snapshot()
			r.log.WithFields(logrus.Fields{
				"iops":       cur.Operations - last.Operations,
				"throughput": HumanizeBytes(cur.BytesRead - last.BytesRead) + "/s",
			}).Info("io stats")
			if r.san != nil && r.log.IsLevelEnabled(logrus.DebugLevel) {
				cs := r.san.CacheStats()
				r.log.WithFields(logrus.Fields{
					"hits":     cs.Hits,
					"misses":   cs.Misses,
					"hit_rate": cs.HitRate,
				}).Debug("sanitizer cache")
			}
			last = cur
		}
	}
}
