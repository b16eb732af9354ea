package domain

import (
	"fmt"
	"strings"
	"time"
)

// dateLayout is the timestamp format used when rendering threads as text.
const dateLayout = "2006-01-02 15:04:05"

// SortMode selects a subreddit listing order.
type SortMode string

// Supported listing orders.
const (
	SortHot SortMode = "hot"
	SortNew SortMode = "new"
	SortTop SortMode = "top"
)

// Valid reports whether s is a supported listing order.
func (s SortMode) Valid() bool {
	switch s {
	case SortHot, SortNew, SortTop:
		return true
	}
	return false
}

// Thread is a Reddit submission with its comments.
// It is immutable once fetched.
type Thread struct {
	// ID is the submission identifier (e.g. "1abc23d").
	ID string `json:"id"`

	// Subreddit is the community the thread belongs to, without the r/ prefix.
	Subreddit string `json:"subreddit"`

	// Title is the submission title.
	Title string `json:"title"`

	// Body is the self-text of the submission. Empty for link posts.
	Body string `json:"body,omitempty"`

	// Author is the submitter's username, or "[deleted]".
	Author string `json:"author"`

	// Permalink is the site-relative path of the thread.
	Permalink string `json:"permalink"`

	Score       int     `json:"score"`
	UpvoteRatio float64 `json:"upvote_ratio"`
	NumComments int     `json:"num_comments"`

	// CreatedAt is when the submission was posted.
	CreatedAt time.Time `json:"created_at"`

	// Comments holds the flattened comment tree in depth-first order.
	// Listings leave this empty; comments are loaded per thread on demand.
	Comments []Comment `json:"comments,omitempty"`

	// FetchedAt is when the thread was retrieved.
	FetchedAt time.Time `json:"fetched_at"`
}

// Comment is a single reply within a thread.
type Comment struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	Depth     int       `json:"depth"`
	Score     int       `json:"score"`
	ParentID  string    `json:"parent_id,omitempty"`
	Permalink string    `json:"permalink,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// URL returns the absolute URL of the thread.
func (t *Thread) URL() string {
	return "https://www.reddit.com" + t.Permalink
}

// Header renders the submission line used at the top of the thread text.
func (t *Thread) Header() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Submission:\n%s (%s): %s\n", t.Author, t.CreatedAt.UTC().Format(dateLayout), t.Title)
	if t.Body != "" {
		b.WriteString(t.Body)
		b.WriteString("\n")
	}
	return b.String()
}

// FormatComment renders one comment line.
func FormatComment(c Comment) string {
	return fmt.Sprintf("Comment by %s (%s): %s", c.Author, c.CreatedAt.UTC().Format(dateLayout), c.Body)
}

// Text renders the thread and all of its comments as plain text.
func (t *Thread) Text() string {
	return t.TextWith(t.Comments)
}

// TextWith renders the thread header followed by the given comments.
func (t *Thread) TextWith(comments []Comment) string {
	lines := make([]string, len(comments))
	for i, c := range comments {
		lines[i] = FormatComment(c)
	}
	return t.Header() + "Comments:\n" + strings.Join(lines, "\n")
}
