// Package favicon finds favicon candidates in page HTML.
package favicon

import (
	"fmt"
	"io"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Discover returns absolute favicon URLs declared by the document, best
// candidate first. When the page declares none, the origin's /favicon.ico is
// returned for http(s) pages.
func Discover(r io.Reader, pageURL string) ([]string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if resolved, err := base.Parse(strings.TrimSpace(href)); err == nil {
			base = resolved
		}
	}

	type candidate struct {
		url  string
		rank int
		size int
	}
	var found []candidate
	doc.Find("link[rel][href]").Each(func(_ int, sel *goquery.Selection) {
		rel, _ := sel.Attr("rel")
		rank, ok := relRank(rel)
		if !ok {
			return
		}
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}
		resolved, err := base.Parse(href)
		if err != nil {
			return
		}
		sizes, _ := sel.Attr("sizes")
		found = append(found, candidate{url: resolved.String(), rank: rank, size: largestSize(sizes)})
	})
	slices.SortStableFunc(found, func(a, b candidate) int {
		if a.rank != b.rank {
			return a.rank - b.rank
		}
		return b.size - a.size
	})

	out := make([]string, 0, len(found)+1)
	for _, c := range found {
		if !slices.Contains(out, c.url) {
			out = append(out, c.url)
		}
	}
	if len(out) == 0 && (base.Scheme == "http" || base.Scheme == "https") && base.Host != "" {
		out = append(out, (&url.URL{Scheme: base.Scheme, Host: base.Host, Path: "/favicon.ico"}).String())
	}
	return out, nil
}

// relRank orders icon link relations; lower is better.
func relRank(rel string) (int, bool) {
	tokens := strings.Fields(strings.ToLower(rel))
	switch {
	case slices.Contains(tokens, "icon"):
		return 0, true
	case slices.Contains(tokens, "apple-touch-icon"), slices.Contains(tokens, "apple-touch-icon-precomposed"):
		return 1, true
	case slices.Contains(tokens, "mask-icon"):
		return 2, true
	default:
		return 0, false
	}
}

// largestSize parses a sizes attribute such as "16x16 32x32" or "any".
func largestSize(sizes string) int {
	best := 0
	for _, token := range strings.Fields(strings.ToLower(sizes)) {
		if token == "any" {
			return 1 << 16
		}
		w, _, ok := strings.Cut(token, "x")
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(w); err == nil {
			best = max(best, n)
		}
	}
	return best
}
