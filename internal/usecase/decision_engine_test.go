package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/user/ghibli-blocker/internal/adapter/memory"
	"github.com/user/ghibli-blocker/internal/entity"
)

func TestDecisionEngine_DeleteRecordsEvent(t *testing.T) {
	page := newPage(t, timelineHTML)
	store := memory.NewPreferenceRepo(entity.Preferences{Enabled: true, Mode: entity.ModeDelete, BlockedCount: 41})
	blockLog := memory.NewBlockLogRepo(0)
	engine := NewDecisionEngine(page, store, blockLog, NewState(entity.DefaultPreferences()))
	fixed := time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC)
	engine.now = func() time.Time { return fixed }

	post := page.mustFind(t, "#p2")
	ev, err := engine.Apply(context.Background(), Decision{Post: post, Container: post, PostURL: "https://x.com/dog/status/2", MediaURL: dogURL})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if ev.ID == "" || ev.BlockedCount != 42 || ev.Mode != entity.ModeDelete || !ev.BlockedAt.Equal(fixed) {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if page.Attached(post) {
		t.Fatal("post not removed")
	}
	events, _ := blockLog.ListRecent(context.Background(), 5)
	if len(events) != 1 || events[0].ID != ev.ID {
		t.Fatalf("event not logged: %v", events)
	}
}

func TestDecisionEngine_CounterFailureStillBlocks(t *testing.T) {
	page := newPage(t, timelineHTML)
	prefs := failingPrefs{memory.NewPreferenceRepo(entity.DefaultPreferences())}
	engine := NewDecisionEngine(page, prefs, memory.NewBlockLogRepo(0), NewState(entity.DefaultPreferences()))

	post := page.mustFind(t, "#p1")
	ev, err := engine.Apply(context.Background(), Decision{Post: post, Container: post, MediaURL: forestURL})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if ev.BlockedCount != 0 || page.Attached(post) {
		t.Fatalf("unexpected result: %+v attached=%v", ev, page.Attached(post))
	}
}
