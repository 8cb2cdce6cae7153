// Package main provides the blocker CLI.
//
// The agent drives a browser tab showing a social-media timeline, sends every
// image of each new post to a remote classifier and removes or blurs the posts
// whose images are flagged.
//
// Usage:
//
//	blocker run
//	blocker serve
//	blocker scan --input timeline.html --output cleaned.html
package main

func main() {
	Execute()
}
