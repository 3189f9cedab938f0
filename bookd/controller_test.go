package main

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
)

func newTestController(t *testing.T, level, nEmpties int) *BookController {
	t.Helper()
	bk := newTestBook(t, level, nEmpties)
	saver := NewBookSaver(filepath.Join(t.TempDir(), "book.obk"))
	return NewBookController(bk, saver, testLogger(t))
}

func TestControllerWaitWithoutJob(t *testing.T) {
	controller := newTestController(t, 1, 58)
	controller.Wait()
	if controller.Growing() {
		t.Fatalf("idle controller must not report a running job")
	}
}

func TestControllerSingleJobAtATime(t *testing.T) {
	controller := newTestController(t, 1, 58)
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	if err := controller.StartGrow(GrowDeviate, wideGrowParams(), func(GrowEvent) {
		// Hold the first event until the test has poked at the controller.
		once.Do(func() {
			close(started)
			<-release
		})
	}); err != nil {
		t.Fatalf("first job: %v", err)
	}
	<-started
	if !controller.Growing() {
		t.Fatalf("controller must report a running job")
	}
	if err := controller.StartGrow(GrowDeviate, wideGrowParams(), nil); !errors.Is(err, errJobRunning) {
		t.Fatalf("second job while running: got %v want %v", err, errJobRunning)
	}
	close(release)
	controller.Wait()
	if controller.Growing() {
		t.Fatalf("job must be finished after Wait")
	}
	if err := controller.StartGrow(GrowEnhance, wideGrowParams(), nil); err != nil {
		t.Fatalf("job after completion: %v", err)
	}
	controller.Wait()
}

func TestControllerConcurrentWaiters(t *testing.T) {
	controller := newTestController(t, 1, 58)
	if err := controller.StartGrow(GrowDeviate, wideGrowParams(), nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			controller.Wait()
		}()
	}
	wg.Wait()
	if controller.Growing() {
		t.Fatalf("all waiters returned while the job still runs")
	}
}
