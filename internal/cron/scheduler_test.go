package cron

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// slowLedger blocks long enough inside ReconcileChats to provoke
// overlapping ticks.
type slowLedger struct {
	concurrent    atomic.Int32
	maxConcurrent atomic.Int32
}

func (l *slowLedger) ReconcileChats(_ context.Context) (int, error) {
	c := l.concurrent.Add(1)
	for {
		old := l.maxConcurrent.Load()
		if c <= old || l.maxConcurrent.CompareAndSwap(old, c) {
			break
		}
	}
	time.Sleep(50 * time.Millisecond)
	l.concurrent.Add(-1)
	return 0, nil
}

func TestSchedulerRejectsDuplicateJobName(t *testing.T) {
	t.Parallel()

	s := NewScheduler(nil)
	if err := s.RegisterJob(&ChatReconcileJob{Ledger: &testLedger{}, Logger: s.logger}); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if err := s.RegisterJob(&ChatReconcileJob{Ledger: &testLedger{}, Logger: s.logger}); err == nil {
		t.Fatal("registering a second chat_reconcile job should fail")
	}
}

func TestSchedulerRejectsInvalidSchedule(t *testing.T) {
	t.Parallel()

	s := NewScheduler(nil)
	_ = s.RegisterJob(&ChatReconcileJob{
		Ledger:       &testLedger{},
		Logger:       s.logger,
		ScheduleExpr: "every fortnight",
	})

	if err := s.Start(); err == nil {
		t.Fatal("expected start to fail on an unparseable schedule")
	}
}

func TestSchedulerStartStop(t *testing.T) {
	t.Parallel()

	s := NewScheduler(nil)
	_ = s.RegisterJob(&ChatReconcileJob{Ledger: &testLedger{}, Logger: s.logger})

	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestSchedulerNilLogger(t *testing.T) {
	t.Parallel()

	s := NewScheduler(nil)
	if s.logger == nil {
		t.Fatal("logger should default when nil is passed")
	}
}

func TestSchedulerSkipsOverlappingReconcileRuns(t *testing.T) {
	t.Parallel()

	ledger := &slowLedger{}
	s := NewScheduler(nil)
	_ = s.RegisterJob(&ChatReconcileJob{
		Ledger:       ledger,
		Logger:       s.logger,
		ScheduleExpr: "* * * * *",
	})
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	// Hammer the job's overlap lock the way concurrent ticks would.
	lock := s.locks["chat_reconcile"]
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if lock.TryLock() {
				_, _ = ledger.ReconcileChats(context.Background())
				lock.Unlock()
			}
		}()
	}
	wg.Wait()

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if ledger.maxConcurrent.Load() > 1 {
		t.Errorf("max concurrent reconciles = %d, want at most 1", ledger.maxConcurrent.Load())
	}
}

func TestSchedulerSurvivesJobError(t *testing.T) {
	t.Parallel()

	ledger := &testLedger{
		fn: func(context.Context) (int, error) { return 0, errors.New("database is locked") },
	}
	s := NewScheduler(nil)
	_ = s.RegisterJob(&ChatReconcileJob{Ledger: ledger, Logger: s.logger})

	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	// A failing reconcile run must not take the scheduler down.
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestSchedulerStopWithoutStart(t *testing.T) {
	t.Parallel()

	s := NewScheduler(nil)
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop before start: %v", err)
	}
}
