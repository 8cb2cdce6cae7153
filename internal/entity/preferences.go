package entity

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidMode is returned when a mode string is neither "delete" nor "blur".
var ErrInvalidMode = errors.New("invalid mode")

// Mode is the configured response to a flagged post.
type Mode string

const (
	ModeDelete Mode = "delete"
	ModeBlur   Mode = "blur"
)

// ParseMode converts a user supplied string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeDelete:
		return ModeDelete, nil
	case ModeBlur:
		return ModeBlur, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// ModeFromDeleteFlag maps the legacy boolean "deleteMode" key onto a Mode.
func ModeFromDeleteFlag(deleteMode bool) Mode {
	if deleteMode {
		return ModeDelete
	}
	return ModeBlur
}

// Preferences mirrors the persisted preference record.
type Preferences struct {
	Enabled      bool
	Mode         Mode
	BlockedCount uint64
}

// DefaultPreferences returns the values used for keys absent from the store.
func DefaultPreferences() Preferences {
	return Preferences{
		Enabled:      true,
		Mode:         ModeDelete,
		BlockedCount: 0,
	}
}

// Keys of the persisted preference record, shared by every store.
const (
	KeyEnabled      = "isEnabled"
	KeyMode         = "mode"
	KeyDeleteMode   = "deleteMode"
	KeyBlockedCount = "blockedCount"
)

// DecodePreferences builds Preferences from stored string values. Missing or
// unparsable values take their defaults; the legacy deleteMode key is only
// read when mode is absent.
func DecodePreferences(values map[string]string) Preferences {
	prefs := DefaultPreferences()
	if v, ok := values[KeyEnabled]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			prefs.Enabled = b
		}
	}
	if v, ok := values[KeyMode]; ok {
		if m, err := ParseMode(v); err == nil {
			prefs.Mode = m
		}
	} else if v, ok := values[KeyDeleteMode]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			prefs.Mode = ModeFromDeleteFlag(b)
		}
	}
	if v, ok := values[KeyBlockedCount]; ok {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			prefs.BlockedCount = n
		}
	}
	return prefs
}
