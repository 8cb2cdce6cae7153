package usecase

// DOMContract collects the host-markup assumptions the pipeline relies on.
// The values track the current timeline markup and change when it does.
type DOMContract struct {
	TimelineSelector   string
	PostSelector       string
	PhotoLinkSelector  string
	VideoSelector      string
	ImageSelector      string
	BackgroundSelector string
	PermalinkSelector  string
	MediaHost          string
	AcceptedMarkers    []string
}

// DefaultDOMContract returns the selectors for the current timeline markup.
func DefaultDOMContract() DOMContract {
	return DOMContract{
		TimelineSelector:   "main",
		PostSelector:       "article",
		PhotoLinkSelector:  `a[href*="photo"]`,
		VideoSelector:      `div[aria-label="Embedded video"]`,
		ImageSelector:      `img[draggable="true"]`,
		BackgroundSelector: `[style*="background-image"]`,
		PermalinkSelector:  `a[href*="/status/"]:has(time)`,
		MediaHost:          "pbs.twimg.com",
		AcceptedMarkers:    []string{"twimg.com/media", "twimg.com/ext_tw_video_thumb"},
	}
}
