package engine

import (
	"time"

	log "github.com/inconshreveable/log15"
)

// startStatsTimer launches the periodic cache/throughput reporter spec.md
// §2 names as "Stats/telemetry". It is engine-private state, stopped by
// stopStatsTimer during Stop's two-phase shutdown.
func (e *Engine) startStatsTimer() {
	if e.statsStop != nil {
		return
	}
	stop := make(chan struct{})
	e.statsStop = stop
	startedAt := e.clock.Time()

	go func() {
		ticker := time.NewTicker(e.config.StatsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				e.reportStats(startedAt)
			case <-stop:
				return
			}
		}
	}()
}

func (e *Engine) stopStatsTimer() {
	if e.statsStop == nil {
		return
	}
	close(e.statsStop)
	e.statsStop = nil
}

// reportStats logs a snapshot of engine-owned counters. Metric values
// themselves live in the metrics package's registered collectors; this
// just gives an operator a periodic textual heartbeat, mirroring the
// teacher's log15-based operational logging style. Uptime is measured
// against e.clock, not time.Now, so tests can fake the reported value by
// calling e.clock.Set.
func (e *Engine) reportStats(startedAt time.Time) {
	e.pendingMu.Lock()
	pending := len(e.pendingReceipts)
	e.pendingMu.Unlock()
	uptime := e.clock.Time().Sub(startedAt)
	log.Info("engine stats", "hardfork", e.hardfork, "pendingReceipts", pending, "running", e.gate.isRunning(), "uptime", uptime)
}
