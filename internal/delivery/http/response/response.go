package response

import (
	"time"

	"github.com/user/ghibli-blocker/internal/entity"
)

// PreferencesResponse is a DTO for the persisted preferences, mirroring entity.Preferences
type PreferencesResponse struct {
	IsEnabled    bool   `json:"is_enabled"`
	Mode         string `json:"mode"` // "delete" or "blur"
	BlockedCount uint64 `json:"blocked_count"`
}

func NewPreferencesResponse(p entity.Preferences) PreferencesResponse {
	return PreferencesResponse{
		IsEnabled:    p.Enabled,
		Mode:         string(p.Mode),
		BlockedCount: p.BlockedCount,
	}
}

type BlockEventResponse struct {
	ID           string    `json:"id"`
	PostURL      string    `json:"post_url,omitempty"`
	MediaURL     string    `json:"media_url"`
	Mode         string    `json:"mode"`
	BlockedCount uint64    `json:"blocked_count"`
	BlockedAt    time.Time `json:"blocked_at"`
}

type BlockListResponse struct {
	Blocks []BlockEventResponse `json:"blocks"`
}

func NewBlockListResponse(events []*entity.BlockEvent) BlockListResponse {
	resp := BlockListResponse{Blocks: make([]BlockEventResponse, 0, len(events))}
	for _, ev := range events {
		resp.Blocks = append(resp.Blocks, BlockEventResponse{
			ID:           ev.ID,
			PostURL:      ev.PostURL,
			MediaURL:     ev.MediaURL,
			Mode:         string(ev.Mode),
			BlockedCount: ev.BlockedCount,
			BlockedAt:    ev.BlockedAt,
		})
	}
	return resp
}
