package entity

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{in: "delete", want: ModeDelete},
		{in: " Blur ", want: ModeBlur},
		{in: "DELETE", want: ModeDelete},
		{in: "hide", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidMode) {
				t.Fatalf("ParseMode(%q): expected ErrInvalidMode, got %v", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseMode(%q) returned error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestModeFromDeleteFlag(t *testing.T) {
	if ModeFromDeleteFlag(true) != ModeDelete {
		t.Fatal("deleteMode=true should map to delete")
	}
	if ModeFromDeleteFlag(false) != ModeBlur {
		t.Fatal("deleteMode=false should map to blur")
	}
}

func TestDefaultPreferences(t *testing.T) {
	p := DefaultPreferences()
	if !p.Enabled || p.Mode != ModeDelete || p.BlockedCount != 0 {
		t.Fatalf("unexpected defaults: %+v", p)
	}
}

func TestControlMessageJSONShape(t *testing.T) {
	b, err := json.Marshal(ToggleBlocking(false, ModeBlur))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if got := string(b); got != `{"action":"toggleBlocking","isEnabled":false,"mode":"blur"}` {
		t.Fatalf("unexpected toggleBlocking payload: %s", got)
	}

	b, err = json.Marshal(ToggleMode(ModeDelete))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if got := string(b); got != `{"action":"toggleMode","mode":"delete"}` {
		t.Fatalf("unexpected toggleMode payload: %s", got)
	}
}

func TestDecodePreferences(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
		want   Preferences
	}{
		{
			name:   "empty record",
			values: map[string]string{},
			want:   DefaultPreferences(),
		},
		{
			name:   "stored values",
			values: map[string]string{KeyEnabled: "false", KeyMode: "blur", KeyBlockedCount: "7"},
			want:   Preferences{Enabled: false, Mode: ModeBlur, BlockedCount: 7},
		},
		{
			name:   "legacy delete flag",
			values: map[string]string{KeyDeleteMode: "false"},
			want:   Preferences{Enabled: true, Mode: ModeBlur},
		},
		{
			name:   "mode wins over legacy flag",
			values: map[string]string{KeyMode: "delete", KeyDeleteMode: "false"},
			want:   Preferences{Enabled: true, Mode: ModeDelete},
		},
		{
			name:   "garbage falls back to defaults",
			values: map[string]string{KeyEnabled: "maybe", KeyMode: "shred", KeyBlockedCount: "-3"},
			want:   DefaultPreferences(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecodePreferences(tt.values); got != tt.want {
				t.Fatalf("DecodePreferences = %+v, want %+v", got, tt.want)
			}
		})
	}
}
