package kv

import (
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/colorful-bubbles/idb-keyval/lib/db"
	"github.com/colorful-bubbles/idb-keyval/lib/logger"
)

var sweepLogger = logger.GetLogger("sweep")

// --------------------------------------------------------------------------
// Metrics
// --------------------------------------------------------------------------

var (
	metricSweepPasses  = metrics.NewCounter("keyval_sweep_passes_total")
	metricSweepRemoved = metrics.NewCounter("keyval_sweep_removed_total")
	metricSweepErrors  = metrics.NewCounter("keyval_sweep_errors_total")
	metricExpiredReads = metrics.NewCounter("keyval_expired_reads_total")
)

// --------------------------------------------------------------------------
// Background Sweep
// --------------------------------------------------------------------------

// startSweeper starts the background sweep goroutine.
// If the sweeper is already running, this function does nothing.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (s *keyValImpl) startSweeper() {
	if s.sweepRunning.CompareAndSwap(false, true) {
		s.wg.Add(1)
		go s.sweeper()
	}
}

// stopSweeper stops the background sweep and waits for it to exit.
// If the sweeper is not running, this function does nothing.
func (s *keyValImpl) stopSweeper() {
	if s.sweepRunning.CompareAndSwap(true, false) {
		close(s.stopCh)
		s.wg.Wait()
	}
}

// sweeper is the main sweep loop. It runs one pass per tick until the
// instance is closed.
func (s *keyValImpl) sweeper() {
	defer s.wg.Done()

	sweepLogger.Debugf("sweeper started, interval %s", s.sweepInterval)

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweepOnce()
		case <-s.stopCh:
			sweepLogger.Debugf("sweeper stopped")
			return
		}
	}
}

// sweepOnce performs a single sweep pass: snapshot the Expire Index key set,
// then check every record independently and purge the expired ones. Keys are
// not re-checked within the same pass, and a failed deletion is not retried
// until the next pass rediscovers the record.
func (s *keyValImpl) sweepOnce() {
	metricSweepPasses.Inc()

	// snapshot the key set in one read transaction, then release it; the
	// per-key work below runs in independent transactions so a long index
	// never blocks writers for the whole pass
	var compositeKeys []string
	err := s.database.Run(ExpireIndex, db.Read, func(tx db.Tx) error {
		return tx.Keys(func(key string) bool {
			compositeKeys = append(compositeKeys, key)
			return true
		})
	})
	if err != nil {
		metricSweepErrors.Inc()
		sweepLogger.Errorf("failed to enumerate expire index: %v", err)
		return
	}

	now := s.clock()
	removed := 0

	for _, compositeKey := range compositeKeys {
		rec, tracked, err := s.readRecord(compositeKey)
		if err != nil {
			metricSweepErrors.Inc()
			sweepLogger.Errorf("failed to read record %q: %v", compositeKey, err)
			continue
		}

		// the lazy path or a Del got here first
		if !tracked {
			continue
		}

		if !rec.Expired(now) {
			continue
		}

		if rec.Store == "" && rec.Key == "" {
			// malformed beyond use: the referenced entry cannot be located,
			// drop the record itself so it stops reappearing every pass
			if err := s.database.Run(ExpireIndex, db.ReadWrite, func(tx db.Tx) error {
				return tx.Delete(compositeKey)
			}); err != nil {
				metricSweepErrors.Inc()
				sweepLogger.Errorf("failed to drop malformed record %q: %v", compositeKey, err)
			}
			continue
		}

		s.purge(rec.Store, rec.Key, compositeKey, "sweep")
		metricSweepRemoved.Inc()
		removed++
	}

	if removed > 0 {
		sweepLogger.Infof("sweep pass removed %d expired entries (%d tracked)", removed, len(compositeKeys))
	}
}
