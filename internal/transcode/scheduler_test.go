package transcode

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"clipforge/internal/library"
	"clipforge/internal/media/ffmpeg"
	"clipforge/internal/services"
)

// gatedEncoder blocks every encode until released so tests can observe the
// scheduler with jobs in flight.
type gatedEncoder struct {
	entered chan string
	release chan struct{}
}

func newGatedEncoder() *gatedEncoder {
	return &gatedEncoder{
		entered: make(chan string, 16),
		release: make(chan struct{}),
	}
}

func (g *gatedEncoder) Encode(ctx context.Context, _ string, outputPath string, profile ffmpeg.Profile, _ float64, _ ffmpeg.ProgressFunc) error {
	g.entered <- profile.Label
	select {
	case <-g.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return os.WriteFile(outputPath, []byte(profile.Label), 0o644)
}

func waitForStatus(t *testing.T, fx *pipelineFixture, id string, want library.Status) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		item, err := fx.store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if item.Status == want {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("item %s stuck in %s, want %s", id, item.Status, want)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestSchedulerProcessesQueuedItems(t *testing.T) {
	fx := newPipelineFixture(t)
	sched := NewScheduler(fx.pipeline, nil, 2, 8)
	if err := sched.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer sched.Stop()

	var ids []string
	for i := 0; i < 3; i++ {
		item := fx.newItem(t, "tenant-a")
		ids = append(ids, item.ID)
		if err := sched.Enqueue(item.ID); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	for _, id := range ids {
		waitForStatus(t, fx, id, library.StatusSafe)
	}
	if depth := sched.Depth(); depth != 0 {
		t.Fatalf("depth = %d after drain", depth)
	}
}

func TestSchedulerEnqueueIsIdempotentWhileActive(t *testing.T) {
	fx := newPipelineFixture(t)
	gate := newGatedEncoder()
	fx.pipeline.encoder = gate

	sched := NewScheduler(fx.pipeline, nil, 1, 8)
	if err := sched.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer sched.Stop()

	item := fx.newItem(t, "tenant-a")
	if err := sched.Enqueue(item.ID); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	<-gate.entered

	if err := sched.Enqueue(item.ID); err != nil {
		t.Fatalf("duplicate Enqueue: %v", err)
	}
	if depth := sched.Depth(); depth != 1 {
		t.Fatalf("depth = %d, want 1", depth)
	}

	close(gate.release)
	waitForStatus(t, fx, item.ID, library.StatusSafe)

	if got := fx.prober.callCount(); got != 1 {
		t.Fatalf("probe ran %d times, want 1", got)
	}
}

func TestSchedulerRejectsWhenQueueFull(t *testing.T) {
	fx := newPipelineFixture(t)
	gate := newGatedEncoder()
	fx.pipeline.encoder = gate

	sched := NewScheduler(fx.pipeline, nil, 1, 1)
	if err := sched.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer sched.Stop()

	running := fx.newItem(t, "tenant-a")
	if err := sched.Enqueue(running.ID); err != nil {
		t.Fatal(err)
	}
	<-gate.entered

	queued := fx.newItem(t, "tenant-a")
	if err := sched.Enqueue(queued.ID); err != nil {
		t.Fatal(err)
	}

	overflow := fx.newItem(t, "tenant-a")
	err := sched.Enqueue(overflow.ID)
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("err = %v, want ErrQueueFull", err)
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("err = %v, want validation marker", err)
	}

	close(gate.release)
	waitForStatus(t, fx, running.ID, library.StatusSafe)
	waitForStatus(t, fx, queued.ID, library.StatusSafe)

	// The rejected item was never admitted, so it can be enqueued again.
	if err := sched.Enqueue(overflow.ID); err != nil {
		t.Fatalf("re-enqueue after rejection: %v", err)
	}
	waitForStatus(t, fx, overflow.ID, library.StatusSafe)
}

func TestSchedulerStopCancelsInFlightJobs(t *testing.T) {
	fx := newPipelineFixture(t)
	gate := newGatedEncoder()
	fx.pipeline.encoder = gate

	sched := NewScheduler(fx.pipeline, nil, 1, 4)
	if err := sched.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	item := fx.newItem(t, "tenant-a")
	if err := sched.Enqueue(item.ID); err != nil {
		t.Fatal(err)
	}
	<-gate.entered

	done := make(chan struct{})
	go func() {
		sched.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return")
	}

	got, err := fx.store.GetByID(context.Background(), item.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != library.StatusProcessing {
		t.Fatalf("status = %s, want processing left for startup reconciliation", got.Status)
	}

	if err := sched.Enqueue("anything"); !errors.Is(err, ErrSchedulerStopped) {
		t.Fatalf("Enqueue after Stop = %v", err)
	}
}
