package engine

import (
	"context"
	"testing"
	"time"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/stretchr/testify/require"
)

func TestStartStopStatsTimerIsIdempotentAndSafe(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.Open(context.Background())
	require.NoError(t, err)

	e.startStatsTimer()
	firstStop := e.statsStop
	e.startStatsTimer() // second call must not replace or leak the running goroutine
	require.Equal(t, firstStop, e.statsStop)

	e.stopStatsTimer()
	require.Nil(t, e.statsStop)
	e.stopStatsTimer() // must not panic on a second close
}

func TestReportStatsReadsPendingReceiptsUnderLock(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.Open(context.Background())
	require.NoError(t, err)

	e.pendingMu.Lock()
	e.pendingReceipts[ids.ID{1}] = nil
	e.pendingMu.Unlock()

	done := make(chan struct{})
	go func() {
		e.reportStats(e.clock.Time())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reportStats did not return, likely deadlocked on pendingMu")
	}
}
