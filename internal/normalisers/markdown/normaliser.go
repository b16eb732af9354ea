// Package markdown normalises Reddit-flavoured markdown.
package markdown

import (
	"html"
	"regexp"
	"strings"
)

var (
	codeFence   = regexp.MustCompile("(?m)^\\s*```[^\\n]*$")
	inlineCode  = regexp.MustCompile("`([^`\\n]+)`")
	images      = regexp.MustCompile(`!\[([^\]]*)\]\([^)]+\)`)
	links       = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	headings    = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	emphasis    = regexp.MustCompile(`(\*\*|__|~~)(\S(?:.*?\S)?)(\*\*|__|~~)`)
	italics     = regexp.MustCompile(`(^|\s)[*_](\S(?:[^*_\n]*\S)?)[*_]`)
	spoilers    = regexp.MustCompile(`>!(.+?)!<`)
	blockquote  = regexp.MustCompile(`(?m)^(>\s?)+`)
	rules       = regexp.MustCompile(`(?m)^\s*([-*_]\s*){3,}$`)
	listMarkers = regexp.MustCompile(`(?m)^(\s*)[-*+]\s+`)
	superscript = regexp.MustCompile(`\^\(([^)]*)\)`)
	blankLines  = regexp.MustCompile(`\n{3,}`)
)

// Unescape decodes the HTML entities Reddit adds to titles and bodies.
// Text that was not escaped passes through unchanged.
func Unescape(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	return html.UnescapeString(s)
}

// Plain flattens markdown to readable plain text. Link and image targets are
// dropped in favour of their text, and code keeps its content without fences.
func Plain(s string) string {
	s = Unescape(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")

	s = codeFence.ReplaceAllString(s, "")
	s = inlineCode.ReplaceAllString(s, "$1")
	s = images.ReplaceAllString(s, "$1")
	s = links.ReplaceAllString(s, "$1")
	s = spoilers.ReplaceAllString(s, "$1")
	s = superscript.ReplaceAllString(s, "$1")
	s = rules.ReplaceAllString(s, "")
	s = headings.ReplaceAllString(s, "")
	s = blockquote.ReplaceAllString(s, "")
	s = listMarkers.ReplaceAllString(s, "$1")
	s = emphasis.ReplaceAllString(s, "$2")
	s = italics.ReplaceAllString(s, "$1$2")
	s = blankLines.ReplaceAllString(s, "\n\n")

	return strings.TrimSpace(s)
}
