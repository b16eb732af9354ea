package driven

import (
	"context"

	"github.com/oliverbatey/forager/internal/core/domain"
)

// ContentSource wraps the social platform API.
//
// Implementations must map failures onto the domain taxonomy:
// domain.ErrNotFound for unresolved identifiers, domain.ErrRateLimited when
// upstream throttles, and domain.ErrUpstream for any other transport failure.
// Implementations never retry; retry policy belongs to the caller.
type ContentSource interface {
	// FetchThread retrieves a thread and its full comment tree.
	FetchThread(ctx context.Context, id string) (*domain.Thread, error)

	// BrowseSubreddit lists up to limit threads in the given order.
	// Returned threads carry no comments; use FetchThread to load them.
	BrowseSubreddit(ctx context.Context, subreddit string, sort domain.SortMode, limit int) ([]domain.Thread, error)
}
