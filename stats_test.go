package treefs

import (
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestStatsCollector_RecordOperation(t *testing.T) {
	sc := newStatsCollector()

	stats := sc.snapshot()
	if stats.Operations != 0 {
		t.Errorf("Initial operations = %d, want 0", stats.Operations)
	}

	sc.recordOperation()
	sc.recordOperation()
	sc.recordOperation()
	stats = sc.snapshot()
	if stats.Operations != 3 {
		t.Errorf("Operations = %d, want 3", stats.Operations)
	}
}

func TestStatsCollector_RecordRead(t *testing.T) {
	sc := newStatsCollector()

	sc.recordRead(100)
	sc.recordRead(50)
	stats := sc.snapshot()
	if stats.BytesRead != 150 {
		t.Errorf("BytesRead = %d, want 150", stats.BytesRead)
	}
}

func TestStatsCollector_RecordError(t *testing.T) {
	sc := newStatsCollector()

	sc.recordError()
	stats := sc.snapshot()
	if stats.Errors != 1 {
		t.Errorf("Errors = %d, want 1", stats.Errors)
	}
}

func TestStatsCollector_Concurrent(t *testing.T) {
	sc := newStatsCollector()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				sc.recordOperation()
				sc.recordRead(1)
			}
		}()
	}
	wg.Wait()

	stats := sc.snapshot()
	if stats.Operations != 10000 {
		t.Errorf("Operations = %d, want 10000", stats.Operations)
	}
	if stats.BytesRead != 10000 {
		t.Errorf("BytesRead = %d, want 10000", stats.BytesRead)
	}
}

func TestStatsReporter_StartStop(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	r := startStatsReporter(newStatsCollector(), logger, nil)
	r.Stop()

	// Stop must be idempotent.
	r.Stop()
}
