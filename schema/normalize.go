package schema

import (
	"fmt"
	"net/url"
	"strings"
)

var passthroughSchemes = []string{"http://", "https://", "about:", "file://", "data:", "chrome://"}

// NormalizeNavigationInput turns address bar input into a URL.
// Input with a known scheme is kept, input containing a dot is treated as a host,
// anything else becomes a search using searchURL (a format string with one %s).
func NormalizeNavigationInput(input, searchURL string) (string, error) {
	text := strings.TrimSpace(input)
	if text == "" {
		return "", ErrInvalidURL
	}
	lower := strings.ToLower(text)
	for _, scheme := range passthroughSchemes {
		if strings.HasPrefix(lower, scheme) {
			if _, err := url.Parse(text); err != nil {
				return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
			}
			return text, nil
		}
	}
	if strings.Contains(text, ".") && !strings.ContainsAny(text, " \t") {
		candidate := "https://" + text
		parsed, err := url.Parse(candidate)
		if err != nil || parsed.Host == "" {
			return "", fmt.Errorf("%w: %q", ErrInvalidURL, text)
		}
		return candidate, nil
	}
	if strings.HasPrefix(lower, "localhost") {
		return "http://" + text, nil
	}
	if searchURL == "" {
		searchURL = DefaultSearchURL
	}
	return fmt.Sprintf(searchURL, url.QueryEscape(text)), nil
}
