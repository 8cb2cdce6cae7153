package entity

import "time"

// NodeRef is an opaque handle to a DOM element, owned by the page adapter
// that produced it.
type NodeRef string

// Outcome is the result of one pass of the tweet processor over a post.
type Outcome string

const (
	OutcomeSkipped     Outcome = "skipped"      // blocking disabled at call time
	OutcomeNoMedia     Outcome = "no_media"     // no candidate media URLs
	OutcomePassed      Outcome = "passed"       // no candidate was flagged
	OutcomeBlocked     Outcome = "blocked"      // post removed or overlaid
	OutcomeNoContainer Outcome = "no_container" // flagged, but no article ancestor
	OutcomeFailed      Outcome = "failed"
)

// BlockEvent mirrors the `blocked_posts` PostgreSQL table schema.
type BlockEvent struct {
	ID           string    `json:"id"`
	PostURL      string    `json:"post_url,omitempty"`
	MediaURL     string    `json:"media_url"`
	Mode         Mode      `json:"mode"`
	BlockedCount uint64    `json:"blocked_count"`
	BlockedAt    time.Time `json:"blocked_at"`
}
