package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/user/ghibli-blocker/internal/entity"
)

func TestPreferenceRepo_ConcurrentIncrements(t *testing.T) {
	repo := NewPreferenceRepo(entity.DefaultPreferences())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.IncrementBlocked(ctx); err != nil {
				t.Errorf("IncrementBlocked returned error: %v", err)
			}
		}()
	}
	wg.Wait()

	prefs, _ := repo.Load(ctx)
	if prefs.BlockedCount != 50 {
		t.Fatalf("expected 50 blocked, got %d", prefs.BlockedCount)
	}
}

func TestPreferenceRepo_SetFields(t *testing.T) {
	repo := NewPreferenceRepo(entity.Preferences{})
	ctx := context.Background()

	if prefs, _ := repo.Load(ctx); prefs.Mode != entity.ModeDelete {
		t.Fatalf("empty mode should default to delete, got %q", prefs.Mode)
	}
	_ = repo.SetEnabled(ctx, true)
	_ = repo.SetMode(ctx, entity.ModeBlur)
	prefs, _ := repo.Load(ctx)
	if !prefs.Enabled || prefs.Mode != entity.ModeBlur {
		t.Fatalf("unexpected prefs: %+v", prefs)
	}
}

func TestControlChannel_DeliversToSubscriber(t *testing.T) {
	ch := NewControlChannel(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan entity.ControlMessage, 1)
	done := make(chan error, 1)
	go func() {
		done <- ch.Subscribe(ctx, func(m entity.ControlMessage) { got <- m })
	}()

	deadline := time.Now().Add(2 * time.Second)
	for ch.Subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(time.Millisecond)
	}

	if err := ch.Publish(ctx, entity.ToggleMode(entity.ModeBlur)); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	select {
	case m := <-got:
		if m.Action != entity.ActionToggleMode || m.Mode != entity.ModeBlur {
			t.Fatalf("unexpected message: %+v", m)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}
	if ch.Subscribers() != 0 {
		t.Fatal("subscriber not removed after cancel")
	}
}

func TestBlockLog_NewestFirstAndBounded(t *testing.T) {
	repo := NewBlockLogRepo(3)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		_ = repo.Save(ctx, &entity.BlockEvent{ID: string(rune('a' + i - 1)), BlockedCount: uint64(i)})
	}

	got, err := repo.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecent returned error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	if got[0].BlockedCount != 5 || got[2].BlockedCount != 3 {
		t.Fatalf("unexpected order: %d..%d", got[0].BlockedCount, got[2].BlockedCount)
	}

	got, _ = repo.ListRecent(ctx, 1)
	if len(got) != 1 || got[0].ID != "e" {
		t.Fatalf("unexpected limited result: %+v", got)
	}
}
