package core

import (
	"context"
	"errors"
	"testing"
)

// fakeComponent records start/stop calls.
type fakeComponent struct {
	name     string
	startErr error
	log      *[]string
}

func (f *fakeComponent) Start() error {
	*f.log = append(*f.log, "start:"+f.name)
	return f.startErr
}

func (f *fakeComponent) Stop(context.Context) error {
	*f.log = append(*f.log, "stop:"+f.name)
	return nil
}

func TestStartStopOrder(t *testing.T) {
	t.Parallel()

	var log []string
	app := NewApp(nil)
	app.Add("first", &fakeComponent{name: "first", log: &log})
	app.Add("second", &fakeComponent{name: "second", log: &log})

	if err := app.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	app.Stop()

	want := []string{"start:first", "start:second", "stop:second", "stop:first"}
	if len(log) != len(want) {
		t.Fatalf("log = %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Errorf("log[%d] = %q, want %q", i, log[i], want[i])
		}
	}
}

func TestStartFailureRollsBack(t *testing.T) {
	t.Parallel()

	var log []string
	app := NewApp(nil)
	app.Add("ok", &fakeComponent{name: "ok", log: &log})
	app.Add("bad", &fakeComponent{name: "bad", startErr: errors.New("boom"), log: &log})

	if err := app.Start(); err == nil {
		t.Fatal("expected start error")
	}

	want := []string{"start:ok", "start:bad", "stop:ok"}
	if len(log) != len(want) {
		t.Fatalf("log = %v, want %v", log, want)
	}
}

func TestNonLifecycleComponentsAreIgnored(t *testing.T) {
	t.Parallel()

	app := NewApp(nil)
	app.Add("plain", struct{}{})
	if err := app.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	app.Stop()
}

func TestDoubleStopIsSafe(t *testing.T) {
	t.Parallel()

	var log []string
	app := NewApp(nil)
	app.Add("one", &fakeComponent{name: "one", log: &log})

	if err := app.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	app.Stop()
	app.Stop()

	stops := 0
	for _, entry := range log {
		if entry == "stop:one" {
			stops++
		}
	}
	if stops != 1 {
		t.Errorf("stop called %d times, want 1", stops)
	}
}
