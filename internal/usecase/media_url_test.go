package usecase

import (
	"reflect"
	"testing"
)

func TestNormalizeMediaURL(t *testing.T) {
	tests := map[string]string{
		"https://pbs.twimg.com/media/AAA?format=jpg&name=small":     "https://pbs.twimg.com/media/AAA?format=jpg&name=small",
		`https://pbs.twimg.com/media/AAA?format=jpg&name=small")`:   "https://pbs.twimg.com/media/AAA?format=jpg&name=small",
		"https://pbs.twimg.com/media/AAA.jpg'); ":                   "https://pbs.twimg.com/media/AAA.jpg",
		"https://pbs.twimg.com/ext_tw_video_thumb/1/pu/img/x.jpg\"": "https://pbs.twimg.com/ext_tw_video_thumb/1/pu/img/x.jpg",
		"https://pbs.twimg.com/media/a%20b":                         "https://pbs.twimg.com/media/a%20b",
		"":                                                          "",
	}
	for in, want := range tests {
		if got := NormalizeMediaURL(in); got != want {
			t.Fatalf("NormalizeMediaURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeMediaURL_Idempotent(t *testing.T) {
	inputs := []string{
		`https://pbs.twimg.com/media/AAA?format=jpg&name=small")`,
		"https://pbs.twimg.com/media/AAA.png)]}",
		"https://example.com/x?y=1#frag",
		"))",
	}
	for _, in := range inputs {
		once := NormalizeMediaURL(in)
		if twice := NormalizeMediaURL(once); twice != once {
			t.Fatalf("normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestBackgroundImageURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: `url("https://pbs.twimg.com/media/AAA?format=jpg")`, want: "https://pbs.twimg.com/media/AAA?format=jpg", ok: true},
		{in: `url('https://pbs.twimg.com/media/BBB.jpg')`, want: "https://pbs.twimg.com/media/BBB.jpg", ok: true},
		{in: `url(https://pbs.twimg.com/media/CCC.jpg)`, want: "https://pbs.twimg.com/media/CCC.jpg", ok: true},
		{in: `none`, ok: false},
		{in: `url()`, ok: false},
	}
	for _, tt := range tests {
		got, ok := BackgroundImageURL(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Fatalf("BackgroundImageURL(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestFinalizeCandidates_FilterLaw(t *testing.T) {
	markers := DefaultDOMContract().AcceptedMarkers
	raw := []string{
		"https://pbs.twimg.com/profile_images/1/avatar.jpg",
		"https://pbs.twimg.com/card_img/2/x.jpg",
		"https://example.com/media/3.jpg",
	}
	if got := FinalizeCandidates(raw, markers); len(got) != 0 {
		t.Fatalf("URLs without accepted markers leaked through: %v", got)
	}
}

func TestFinalizeCandidates_DedupLaw(t *testing.T) {
	markers := DefaultDOMContract().AcceptedMarkers
	raw := []string{
		"https://pbs.twimg.com/media/AAA?format=jpg",
		`https://pbs.twimg.com/media/AAA?format=jpg")`,
		"https://pbs.twimg.com/media/AAA?format=jpg",
		"https://pbs.twimg.com/ext_tw_video_thumb/9/pu/img/v.jpg",
	}
	want := []string{
		"https://pbs.twimg.com/media/AAA?format=jpg",
		"https://pbs.twimg.com/ext_tw_video_thumb/9/pu/img/v.jpg",
	}
	if got := FinalizeCandidates(raw, markers); !reflect.DeepEqual(got, want) {
		t.Fatalf("FinalizeCandidates = %v, want %v", got, want)
	}
}
