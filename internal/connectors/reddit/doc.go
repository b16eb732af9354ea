// Package reddit implements the content source for Reddit.
//
// The connector reads public subreddit listings and thread comment trees
// through the OAuth API at oauth.reddit.com using application-only
// (client credentials) authentication.
//
// # Architecture
//
// The connector follows the driven port pattern defined in [driven.ContentSource].
// It comprises the following components:
//
//   - Connector: maps API payloads onto domain threads and comments
//   - Client: handles authenticated API communication with rate limiting
//   - RateLimiter: proactive pacing plus Reddit's X-Ratelimit headers
//
// # Errors
//
// Failures are mapped onto the domain taxonomy. Unknown, private and banned
// threads or subreddits wrap domain.ErrNotFound, HTTP 429 returns a
// *RateLimitError that wraps domain.ErrRateLimited, and every other failure
// wraps domain.ErrUpstream. Requests are never retried here.
package reddit
