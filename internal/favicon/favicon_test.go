package favicon

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDiscoverOrdersCandidates(t *testing.T) {
	html := `<html><head>
<link rel="apple-touch-icon" href="/touch.png">
<link rel="icon" sizes="16x16" href="small.png">
<link rel="shortcut icon" sizes="32x32 64x64" href="https://cdn.example/big.png">
<link rel="stylesheet" href="/site.css">
<link rel="icon" href="small.png">
</head><body></body></html>`
	got, err := Discover(strings.NewReader(html), "https://example.com/docs/page.html")
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	want := []string{
		"https://cdn.example/big.png",
		"https://example.com/docs/small.png",
		"https://example.com/touch.png",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("candidates mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscoverHonoursBaseHref(t *testing.T) {
	html := `<head><base href="https://static.example/assets/"><link rel="icon" href="fav.svg" sizes="any"></head>`
	got, err := Discover(strings.NewReader(html), "https://example.com/")
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(got) != 1 || got[0] != "https://static.example/assets/fav.svg" {
		t.Fatalf("unexpected candidates %v", got)
	}
}

func TestDiscoverFallsBackToFaviconICO(t *testing.T) {
	got, err := Discover(strings.NewReader("<p>no icons</p>"), "http://example.com:8080/a/b")
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(got) != 1 || got[0] != "http://example.com:8080/favicon.ico" {
		t.Fatalf("unexpected fallback %v", got)
	}
	got, err = Discover(strings.NewReader("<p></p>"), "about:blank")
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no fallback for about:blank, got %v", got)
	}
}

func TestLargestSize(t *testing.T) {
	cases := map[string]int{"": 0, "16x16": 16, "16x16 48x48": 48, "any": 1 << 16, "bogus": 0}
	for in, want := range cases {
		if got := largestSize(in); got != want {
			t.Fatalf("largestSize(%q) = %d, want %d", in, got, want)
		}
	}
}
