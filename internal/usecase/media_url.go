package usecase

import (
	"regexp"
	"strings"
)

var (
	// trailingJunk matches a run of characters at the end of a URL that are
	// outside the set [A-Za-z0-9_:/.?&=-%].
	trailingJunk = regexp.MustCompile(`[^\w:/.?&=\-%]+$`)

	backgroundURL = regexp.MustCompile(`url\(["']?(.*?)["']?\)`)
)

// NormalizeMediaURL right-trims characters that cannot end a media URL.
// Normalizing an already normalized URL returns it unchanged.
func NormalizeMediaURL(raw string) string {
	return trailingJunk.ReplaceAllString(raw, "")
}

// HasAcceptedMarker reports whether url contains one of the accepted path markers.
func HasAcceptedMarker(url string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(url, m) {
			return true
		}
	}
	return false
}

// BackgroundImageURL extracts the first url(...) reference of a background-image value.
func BackgroundImageURL(value string) (string, bool) {
	m := backgroundURL.FindStringSubmatch(value)
	if m == nil || m[1] == "" {
		return "", false
	}
	return m[1], true
}

// FinalizeCandidates dedups raw URLs, normalizes them, drops the ones lacking
// an accepted marker and dedups again. Discovery order is kept.
func FinalizeCandidates(raw []string, markers []string) []string {
	seenRaw := make(map[string]struct{}, len(raw))
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if _, dup := seenRaw[r]; dup {
			continue
		}
		seenRaw[r] = struct{}{}

		u := NormalizeMediaURL(r)
		if u == "" || !HasAcceptedMarker(u, markers) {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
