package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/oliverbatey/forager/internal/core/domain"
	"github.com/oliverbatey/forager/internal/core/ports/driven"
)

const (
	// DefaultListingLimit is used when a caller passes a non-positive limit.
	DefaultListingLimit = 5

	// MaxListingLimit caps a single listing request.
	MaxListingLimit = 25
)

var (
	subredditPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_]{1,20}$`)
	threadIDPattern  = regexp.MustCompile(`^[a-z0-9]{1,12}$`)
)

// Verify interface compliance at compile time.
var _ driven.ContentSource = (*Connector)(nil)

// Connector fetches threads and listings from Reddit.
type Connector struct {
	client *Client
	now    func() time.Time
}

// New creates a connector with its own authenticated client.
func New(cfg Config) (*Connector, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return NewWithClient(client), nil
}

// NewWithClient creates a connector around an existing client.
func NewWithClient(client *Client) *Connector {
	return &Connector{client: client, now: time.Now}
}

// FetchThread retrieves a submission and its full comment tree.
func (c *Connector) FetchThread(ctx context.Context, id string) (*domain.Thread, error) {
	id, err := NormalizeThreadID(id)
	if err != nil {
		return nil, err
	}

	// The response is a two-element array: the submission listing, then the comments listing.
	var payload []listing
	if err := c.client.get(ctx, "/comments/"+id, nil, &payload); err != nil {
		return nil, fmt.Errorf("fetch thread %s: %w", id, err)
	}
	if len(payload) == 0 || len(payload[0].Data.Children) == 0 {
		return nil, fmt.Errorf("thread %s: %w", id, domain.ErrNotFound)
	}

	link, err := decodeLink(payload[0].Data.Children[0])
	if err != nil {
		return nil, fmt.Errorf("thread %s: %w", id, err)
	}

	thread := link.toThread()
	thread.FetchedAt = c.now().UTC()
	if len(payload) > 1 {
		thread.Comments = flattenComments(payload[1].Data.Children, 0, nil)
	}
	return &thread, nil
}

// BrowseSubreddit lists submissions from a subreddit without their comments.
func (c *Connector) BrowseSubreddit(ctx context.Context, subreddit string, sort domain.SortMode, limit int) ([]domain.Thread, error) {
	subreddit, err := NormalizeSubreddit(subreddit)
	if err != nil {
		return nil, err
	}
	if sort == "" {
		sort = domain.SortHot
	}
	if !sort.Valid() {
		return nil, fmt.Errorf("sort %q: %w", sort, domain.ErrInvalidInput)
	}
	limit = ClampLimit(limit)

	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))

	var payload listing
	path := "/r/" + subreddit + "/" + string(sort)
	if err := c.client.get(ctx, path, query, &payload); err != nil {
		return nil, fmt.Errorf("browse r/%s: %w", subreddit, err)
	}

	fetchedAt := c.now().UTC()
	threads := make([]domain.Thread, 0, len(payload.Data.Children))
	for _, child := range payload.Data.Children {
		if child.Kind != kindLink {
			continue
		}
		link, err := decodeLink(child)
		if err != nil {
			continue
		}
		thread := link.toThread()
		thread.FetchedAt = fetchedAt
		threads = append(threads, thread)
		if len(threads) == limit {
			break
		}
	}
	return threads, nil
}

// ClampLimit applies the listing default and cap.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListingLimit
	}
	if limit > MaxListingLimit {
		return MaxListingLimit
	}
	return limit
}

// NormalizeSubreddit strips an optional r/ prefix and validates the name.
func NormalizeSubreddit(name string) (string, error) {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "/")
	name = strings.TrimPrefix(name, "r/")
	if !subredditPattern.MatchString(name) {
		return "", fmt.Errorf("subreddit %q: %w: %w", name, ErrInvalidName, domain.ErrInvalidInput)
	}
	return name, nil
}

// NormalizeThreadID accepts a bare id, a t3_ fullname, or a thread URL.
func NormalizeThreadID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if u, err := url.Parse(id); err == nil && u.Host != "" {
		// https://www.reddit.com/r/golang/comments/1abc23d/title/
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		for i, p := range parts {
			if p == "comments" && i+1 < len(parts) {
				id = parts[i+1]
				break
			}
		}
	}
	id = strings.TrimPrefix(id, "t3_")
	if !threadIDPattern.MatchString(id) {
		return "", fmt.Errorf("thread id %q: %w: %w", id, ErrInvalidName, domain.ErrInvalidInput)
	}
	return id, nil
}

func decodeLink(t thing) (*linkData, error) {
	if t.Kind != kindLink {
		return nil, fmt.Errorf("unexpected kind %q: %w", t.Kind, domain.ErrUpstream)
	}
	var link linkData
	if err := json.Unmarshal(t.Data, &link); err != nil {
		return nil, fmt.Errorf("decode submission: %w: %w", domain.ErrUpstream, err)
	}
	return &link, nil
}
