package autoresponse

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func waitDone(t *testing.T, h *Handle) {
	t.Helper()
	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for task")
	}
}

func TestScheduleFiresOnce(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var runs atomic.Int32
	h := s.Schedule("t1", 10*time.Millisecond, func(context.Context) { runs.Add(1) })
	waitDone(t, h)

	if !h.Fired() {
		t.Error("expected handle to report fired")
	}
	if h.Cancel() {
		t.Error("cancel after firing must report false")
	}
	time.Sleep(20 * time.Millisecond)
	if got := runs.Load(); got != 1 {
		t.Errorf("expected 1 run, got %d", got)
	}
	if s.Pending() != 0 {
		t.Errorf("expected no pending tasks, got %d", s.Pending())
	}
}

func TestCancelPreventsRun(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var runs atomic.Int32
	h := s.Schedule("t1", 50*time.Millisecond, func(context.Context) { runs.Add(1) })
	if !h.Cancel() {
		t.Fatal("expected cancel to succeed")
	}
	waitDone(t, h)
	time.Sleep(80 * time.Millisecond)
	if runs.Load() != 0 {
		t.Error("cancelled task ran")
	}
	if h.Fired() {
		t.Error("cancelled handle reports fired")
	}
}

func TestStopCancelsPendingAndRejectsNew(t *testing.T) {
	s := NewScheduler()
	var runs atomic.Int32
	first := s.Schedule("t1", time.Hour, func(context.Context) { runs.Add(1) })
	s.Schedule("t3", time.Hour, func(context.Context) { runs.Add(1) })
	if dropped := s.Stop(); dropped != 2 {
		t.Errorf("Stop dropped %d tasks, want 2", dropped)
	}
	waitDone(t, first)
	if s.Stop() != 0 {
		t.Error("second Stop should drop nothing")
	}

	late := s.Schedule("t2", time.Millisecond, func(context.Context) { runs.Add(1) })
	waitDone(t, late)
	time.Sleep(10 * time.Millisecond)
	if runs.Load() != 0 {
		t.Errorf("expected no runs after stop, got %d", runs.Load())
	}
}

func TestStopWaitsForRunningTask(t *testing.T) {
	s := NewScheduler()
	started := make(chan struct{})
	var finished atomic.Bool
	s.Schedule("t1", time.Millisecond, func(context.Context) {
		close(started)
		time.Sleep(30 * time.Millisecond)
		finished.Store(true)
	})
	<-started
	s.Stop()
	if !finished.Load() {
		t.Error("Stop returned before running task finished")
	}
}
