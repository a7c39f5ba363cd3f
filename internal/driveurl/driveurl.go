// Package driveurl finds Google Drive links in free text and pulls the
// folder or file identifier out of them.
package driveurl

import (
	"errors"
	"regexp"
	"strings"
)

// ErrNoFolderID is returned when a URL carries no recognisable Drive id.
var ErrNoFolderID = errors.New("no drive folder id in url")

var (
	// Tried in order; the first pattern with any match wins even if the
	// second pattern matches earlier in the text.
	folderURLPattern = regexp.MustCompile(`https?://drive\.google\.com/(?:[^\s"'<>]*/)?folders/[\w-]+[^\s"'<>]*`)
	fileURLPattern   = regexp.MustCompile(`https?://drive\.google\.com/(?:open\?id=|file/d/)[\w-]+[^\s"'<>]*`)

	idPatterns = []*regexp.Regexp{
		regexp.MustCompile(`/folders/([\w-]+)`),
		regexp.MustCompile(`/file/d/([\w-]+)`),
		regexp.MustCompile(`[?&]id=([\w-]+)`),
	}
)

// ExtractURL returns the first Drive folder or file URL found in text, or ""
// when there is none.
func ExtractURL(text string) string {
	if text == "" {
		return ""
	}
	if m := folderURLPattern.FindString(text); m != "" {
		return m
	}
	return fileURLPattern.FindString(text)
}

// FirstURL runs ExtractURL over each candidate and returns the first hit.
func FirstURL(candidates ...string) string {
	for _, c := range candidates {
		if u := ExtractURL(c); u != "" {
			return u
		}
	}
	return ""
}

// FolderID returns the Drive id embedded in rawURL.
func FolderID(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	for _, p := range idPatterns {
		if m := p.FindStringSubmatch(rawURL); len(m) == 2 {
			return m[1], nil
		}
	}
	return "", ErrNoFolderID
}
