package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tasteline/kitchen-dashboard/pkg/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

type fakeSource struct {
	mu         sync.Mutex
	snapshots  [][]models.RawOrder
	fetchErr   error
	fetchCalls int
	pushErr    error
	pushed     []models.StatusUpdate
}

func (f *fakeSource) FetchActive(ctx context.Context, restaurantID string) ([]models.RawOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if len(f.snapshots) == 0 {
		return nil, nil
	}
	snap := f.snapshots[0]
	if len(f.snapshots) > 1 {
		f.snapshots = f.snapshots[1:]
	}
	return snap, nil
}

func (f *fakeSource) PushStatus(ctx context.Context, orderID string, update models.StatusUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushed = append(f.pushed, update)
	return f.pushErr
}

func (f *fakeSource) fetches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls
}

func (f *fakeSource) pushCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pushed)
}

type fakeSink struct {
	mu        sync.Mutex
	snapshots [][]models.RawOrder
}

func (f *fakeSink) ApplySnapshot(raw []models.RawOrder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots = append(f.snapshots, raw)
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.snapshots)
}

func TestRunPollsImmediatelyThenOnInterval(t *testing.T) {
	source := &fakeSource{snapshots: [][]models.RawOrder{{{MongoID: "A1"}}}}
	sink := &fakeSink{}
	loop := NewLoop(source, sink, "rest_001", 50*time.Millisecond, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)

	// The first poll happens before the first tick.
	time.Sleep(20 * time.Millisecond)
	if sink.count() != 1 {
		t.Errorf("Expected 1 immediate poll, got %d", sink.count())
	}

	time.Sleep(130 * time.Millisecond)
	cancel()

	if got := sink.count(); got < 3 {
		t.Errorf("Expected at least 3 polls after ticks, got %d", got)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	source := &fakeSource{}
	sink := &fakeSink{}
	loop := NewLoop(source, sink, "rest_001", 20*time.Millisecond, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Loop did not stop after cancellation")
	}

	settled := source.fetches()
	time.Sleep(60 * time.Millisecond)
	if source.fetches() != settled {
		t.Error("Loop kept polling after cancellation")
	}
}

func TestPollFailureKeepsLastKnownGood(t *testing.T) {
	source := &fakeSource{fetchErr: errors.New("backend down")}
	sink := &fakeSink{}
	loop := NewLoop(source, sink, "rest_001", 10*time.Millisecond, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	loop.Run(ctx)

	// Failed polls never reach the sink, and never panic or abort the loop.
	if sink.count() != 0 {
		t.Errorf("Failed polls must not feed the sink, got %d snapshots", sink.count())
	}
}

func TestRepeatedFailuresTripBreaker(t *testing.T) {
	source := &fakeSource{fetchErr: errors.New("backend down")}
	sink := &fakeSink{}
	loop := NewLoop(source, sink, "rest_001", 10*time.Millisecond, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	loop.Run(ctx)

	// Three failures open the breaker; with a 20ms cooldown and ~15 ticks the
	// source must see far fewer calls than ticks.
	if calls := source.fetches(); calls >= 12 {
		t.Errorf("Breaker did not suppress polls: %d fetch calls", calls)
	}
}

func TestPushIsFireAndForget(t *testing.T) {
	source := &fakeSource{pushErr: errors.New("backend down")}
	sink := &fakeSink{}
	loop := NewLoop(source, sink, "rest_001", time.Minute, testLogger())

	// Push must not block or surface the error.
	loop.Push("A1", models.StatusUpdate{Status: models.StatusReady, VerificationCode: "AB12"})

	deadline := time.Now().Add(time.Second)
	for source.pushCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Push never reached the source")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
