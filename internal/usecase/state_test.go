package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/user/ghibli-blocker/internal/adapter/memory"
	"github.com/user/ghibli-blocker/internal/entity"
)

func TestState_Apply(t *testing.T) {
	enabled, disabled := true, false
	tests := []struct {
		name    string
		msg     entity.ControlMessage
		want    Settings
		wantErr bool
	}{
		{"disable keeps mode", entity.ControlMessage{Action: entity.ActionToggleBlocking, IsEnabled: &disabled}, Settings{false, entity.ModeDelete}, false},
		{"enable with mode", entity.ControlMessage{Action: entity.ActionToggleBlocking, IsEnabled: &enabled, Mode: "blur"}, Settings{true, entity.ModeBlur}, false},
		{"toggle mode", entity.ToggleMode(entity.ModeBlur), Settings{true, entity.ModeBlur}, false},
		{"missing isEnabled", entity.ControlMessage{Action: entity.ActionToggleBlocking}, Settings{true, entity.ModeDelete}, true},
		{"invalid mode", entity.ToggleMode("hide"), Settings{true, entity.ModeDelete}, true},
		{"unknown action", entity.ControlMessage{Action: "reload"}, Settings{true, entity.ModeDelete}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewState(entity.DefaultPreferences())
			err := s.Apply(tt.msg)
			if tt.wantErr != (err != nil) {
				t.Fatalf("Apply error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidControlMessage) {
				t.Fatalf("expected ErrInvalidControlMessage, got %v", err)
			}
			if got := s.Snapshot(); got != tt.want {
				t.Fatalf("Snapshot = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestState_ConcurrentApply(t *testing.T) {
	s := NewState(entity.DefaultPreferences())
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.Apply(entity.ToggleBlocking(i%2 == 0, ""))
		}()
		go func() {
			defer wg.Done()
			_ = s.Apply(entity.ToggleMode(entity.ModeBlur))
		}()
	}
	wg.Wait()
	if s.Mode() != entity.ModeBlur {
		t.Fatalf("mode lost under concurrent updates: %s", s.Mode())
	}
}

func TestPreferenceSync_SeedAndListen(t *testing.T) {
	stored := entity.Preferences{Enabled: false, Mode: entity.ModeBlur, BlockedCount: 7}
	store := memory.NewPreferenceRepo(stored)
	channel := memory.NewControlChannel(4)
	state := NewState(entity.DefaultPreferences())
	ps := NewPreferenceSync(store, channel, state)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	prefs, err := ps.Seed(ctx)
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if prefs != stored || state.Enabled() || state.Mode() != entity.ModeBlur {
		t.Fatalf("state not seeded: %+v / %+v", prefs, state.Snapshot())
	}

	done := make(chan error, 1)
	go func() { done <- ps.Listen(ctx) }()
	for channel.Subscribers() == 0 {
		time.Sleep(time.Millisecond)
	}

	_ = channel.Publish(ctx, entity.ControlMessage{Action: "bogus"})
	_ = channel.Publish(ctx, entity.ToggleBlocking(true, entity.ModeDelete))

	deadline := time.After(2 * time.Second)
	for !state.Enabled() {
		select {
		case <-deadline:
			t.Fatal("control message never applied")
		case <-time.After(time.Millisecond):
		}
	}
	if state.Mode() != entity.ModeDelete {
		t.Fatalf("unexpected mode %s", state.Mode())
	}

	// The agent never writes settings back.
	if got, _ := store.Load(ctx); got != stored {
		t.Fatalf("store modified by sync: %+v", got)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Listen returned error: %v", err)
	}
}
