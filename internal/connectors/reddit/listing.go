package reddit

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/oliverbatey/forager/internal/core/domain"
)

// Reddit kind prefixes.
const (
	kindComment = "t1"
	kindLink    = "t3"
	kindMore    = "more"
)

// listing is Reddit's paginated container.
type listing struct {
	Kind string `json:"kind"`
	Data struct {
		After    string  `json:"after"`
		Children []thing `json:"children"`
	} `json:"data"`
}

// thing is a listing child; Data is decoded according to Kind.
type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// linkData is a submission (t3).
type linkData struct {
	ID          string  `json:"id"`
	Subreddit   string  `json:"subreddit"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Author      string  `json:"author"`
	Permalink   string  `json:"permalink"`
	Score       int     `json:"score"`
	UpvoteRatio float64 `json:"upvote_ratio"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
}

// commentData is a comment (t1). Replies is "" when there are none, otherwise a listing.
type commentData struct {
	ID         string          `json:"id"`
	Author     string          `json:"author"`
	Body       string          `json:"body"`
	Score      int             `json:"score"`
	ParentID   string          `json:"parent_id"`
	Permalink  string          `json:"permalink"`
	CreatedUTC float64         `json:"created_utc"`
	Replies    json.RawMessage `json:"replies"`
}

func (l *linkData) toThread() domain.Thread {
	return domain.Thread{
		ID:          l.ID,
		Subreddit:   l.Subreddit,
		Title:       l.Title,
		Body:        l.Selftext,
		Author:      authorName(l.Author),
		Permalink:   l.Permalink,
		Score:       l.Score,
		UpvoteRatio: l.UpvoteRatio,
		NumComments: l.NumComments,
		CreatedAt:   fromUnix(l.CreatedUTC),
	}
}

// flattenComments walks the comment tree depth-first, skipping "more" stubs.
func flattenComments(children []thing, depth int, out []domain.Comment) []domain.Comment {
	for _, child := range children {
		if child.Kind != kindComment {
			continue
		}
		var c commentData
		if err := json.Unmarshal(child.Data, &c); err != nil {
			continue
		}
		out = append(out, domain.Comment{
			ID:        c.ID,
			Author:    authorName(c.Author),
			Body:      c.Body,
			Depth:     depth,
			Score:     c.Score,
			ParentID:  c.ParentID,
			Permalink: c.Permalink,
			CreatedAt: fromUnix(c.CreatedUTC),
		})

		if replies, ok := decodeReplies(c.Replies); ok {
			out = flattenComments(replies.Data.Children, depth+1, out)
		}
	}
	return out
}

func decodeReplies(raw json.RawMessage) (*listing, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}
	var l listing
	if err := json.Unmarshal(raw, &l); err != nil {
		return nil, false
	}
	return &l, true
}

func authorName(a string) string {
	if a == "" {
		return "[deleted]"
	}
	return a
}

func fromUnix(secs float64) time.Time {
	if secs <= 0 {
		return time.Time{}
	}
	return time.Unix(int64(secs), 0).UTC()
}
