package crawler

import (
	"context"
	"testing"
	"time"
)

func TestPhaseContextSettleCarriesNoNavDeadline(t *testing.T) {
	tabCtx, tabCancel := context.WithCancel(context.Background())
	defer tabCancel()

	navCtx, navDone := phaseContext(context.Background(), tabCtx, 30*time.Second)
	defer navDone()
	if _, ok := navCtx.Deadline(); !ok {
		t.Error("navigation phase should carry a deadline")
	}

	// The settle phase runs after navigation succeeded; a settle delay
	// longer than the navigation timeout must still be able to complete.
	settleCtx, settleDone := phaseContext(context.Background(), tabCtx, 0)
	defer settleDone()
	if _, ok := settleCtx.Deadline(); ok {
		t.Error("settle phase must not carry the navigation deadline")
	}
	if settleCtx.Err() != nil {
		t.Errorf("settle phase context unexpectedly done: %v", settleCtx.Err())
	}
}

func TestPhaseContextCallerCancellation(t *testing.T) {
	tabCtx, tabCancel := context.WithCancel(context.Background())
	defer tabCancel()

	callerCtx, callerCancel := context.WithCancel(context.Background())
	phaseCtx, done := phaseContext(callerCtx, tabCtx, time.Minute)
	defer done()

	callerCancel()
	select {
	case <-phaseCtx.Done():
	case <-time.After(time.Second):
		t.Fatal("caller cancellation did not reach the phase context")
	}
}

func TestPhaseContextTabCancellation(t *testing.T) {
	tabCtx, tabCancel := context.WithCancel(context.Background())

	phaseCtx, done := phaseContext(context.Background(), tabCtx, 0)
	defer done()

	tabCancel()
	select {
	case <-phaseCtx.Done():
	case <-time.After(time.Second):
		t.Fatal("tab cancellation did not reach the phase context")
	}
}

func TestPhaseContextStopReleasesWatcher(t *testing.T) {
	tabCtx, tabCancel := context.WithCancel(context.Background())
	defer tabCancel()

	callerCtx, callerCancel := context.WithCancel(context.Background())
	defer callerCancel()

	phaseCtx, done := phaseContext(callerCtx, tabCtx, 0)
	done()

	if phaseCtx.Err() == nil {
		t.Error("stop func should cancel the phase context")
	}
}
