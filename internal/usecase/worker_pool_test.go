package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/user/ghibli-blocker/internal/entity"
)

type processorFunc func(ctx context.Context, post entity.NodeRef) (entity.Outcome, error)

func (f processorFunc) Process(ctx context.Context, post entity.NodeRef) (entity.Outcome, error) {
	return f(ctx, post)
}

func TestWorkerPool_ProcessesEverySubmittedPost(t *testing.T) {
	var (
		mu   sync.Mutex
		seen = make(map[entity.NodeRef]int)
	)
	pool := NewWorkerPool(processorFunc(func(_ context.Context, post entity.NodeRef) (entity.Outcome, error) {
		mu.Lock()
		seen[post]++
		mu.Unlock()
		return entity.OutcomePassed, nil
	}), 3, 4)
	pool.Start(context.Background())

	for i := 0; i < 50; i++ {
		if err := pool.Submit(context.Background(), entity.NodeRef(fmt.Sprintf("n%d", i))); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	pool.Stop()

	if len(seen) != 50 {
		t.Fatalf("processed %d posts, want 50", len(seen))
	}
	for post, n := range seen {
		if n != 1 {
			t.Fatalf("%s processed %d times", post, n)
		}
	}
}

func TestWorkerPool_IsolatesPanicsAndErrors(t *testing.T) {
	var (
		mu        sync.Mutex
		completed []entity.NodeRef
	)
	pool := NewWorkerPool(processorFunc(func(_ context.Context, post entity.NodeRef) (entity.Outcome, error) {
		switch post {
		case "boom":
			panic("unexpected DOM shape")
		case "bad":
			return entity.OutcomeFailed, errors.New("classifier unreachable")
		}
		mu.Lock()
		completed = append(completed, post)
		mu.Unlock()
		return entity.OutcomeBlocked, nil
	}), 1, 8)
	pool.Start(context.Background())

	for _, post := range []entity.NodeRef{"boom", "ok1", "bad", "ok2"} {
		if err := pool.Submit(context.Background(), post); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	pool.Stop()

	if len(completed) != 2 || completed[0] != "ok1" || completed[1] != "ok2" {
		t.Fatalf("unexpected completed posts: %v", completed)
	}
}

func TestWorkerPool_SubmitAppliesBackpressure(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	pool := NewWorkerPool(processorFunc(func(context.Context, entity.NodeRef) (entity.Outcome, error) {
		started <- struct{}{}
		<-release
		return entity.OutcomePassed, nil
	}), 1, 1)
	pool.Start(context.Background())
	defer pool.Stop()
	defer close(release)

	ctx := context.Background()
	if err := pool.Submit(ctx, "first"); err != nil {
		t.Fatalf("Submit first: %v", err)
	}
	<-started
	if err := pool.Submit(ctx, "queued"); err != nil {
		t.Fatalf("Submit queued: %v", err)
	}

	full, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	if err := pool.Submit(full, "blocked"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected Submit to block until the deadline, got %v", err)
	}
}

func TestWorkerPool_SubmitAfterStop(t *testing.T) {
	pool := NewWorkerPool(processorFunc(func(context.Context, entity.NodeRef) (entity.Outcome, error) {
		return entity.OutcomePassed, nil
	}), 2, 2)
	pool.Start(context.Background())
	pool.Stop()
	pool.Stop()

	if err := pool.Submit(context.Background(), "late"); !errors.Is(err, ErrPoolStopped) {
		t.Fatalf("expected ErrPoolStopped, got %v", err)
	}
}
