package reddit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oliverbatey/forager/internal/core/domain"
)

const threadJSON = `[
  {"kind": "Listing", "data": {"children": [
    {"kind": "t3", "data": {
      "id": "abc123", "subreddit": "golang", "title": "Generics in practice",
      "selftext": "How do you use them?", "author": "gopher",
      "permalink": "/r/golang/comments/abc123/generics_in_practice/",
      "score": 42, "upvote_ratio": 0.95, "num_comments": 3, "created_utc": 1700000000.0
    }}
  ]}},
  {"kind": "Listing", "data": {"children": [
    {"kind": "t1", "data": {
      "id": "c1", "author": "alice", "body": "Mostly for containers.", "score": 10,
      "parent_id": "t3_abc123", "created_utc": 1700000100.0,
      "replies": {"kind": "Listing", "data": {"children": [
        {"kind": "t1", "data": {
          "id": "c2", "author": "", "body": "Same here.", "score": 2,
          "parent_id": "t1_c1", "created_utc": 1700000200.0, "replies": ""
        }},
        {"kind": "more", "data": {"count": 4, "children": ["c9"]}}
      ]}}
    }},
    {"kind": "t1", "data": {
      "id": "c3", "author": "bob", "body": "Never touched them.", "score": 1,
      "parent_id": "t3_abc123", "created_utc": 1700000300.0, "replies": ""
    }}
  ]}}
]`

const listingJSON = `{"kind": "Listing", "data": {"after": "t3_x", "children": [
  {"kind": "t3", "data": {"id": "p1", "subreddit": "golang", "title": "First", "author": "a",
    "permalink": "/r/golang/comments/p1/first/", "score": 5, "num_comments": 2, "created_utc": 1700000000}},
  {"kind": "t3", "data": {"id": "p2", "subreddit": "golang", "title": "Second", "author": "b",
    "permalink": "/r/golang/comments/p2/second/", "score": 7, "num_comments": 0, "created_utc": 1700000500}}
]}}`

// newTestServer serves the token endpoint plus the given API handler.
func newTestServer(t *testing.T, api http.HandlerFunc) *Connector {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/access_token", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "id", user)
		assert.Equal(t, "secret", pass)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"token","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/", api)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	connector, err := New(Config{
		ClientID:          "id",
		ClientSecret:      "secret",
		APIURL:            server.URL,
		TokenURL:          server.URL + "/api/v1/access_token",
		RequestsPerSecond: 1000,
	})
	require.NoError(t, err)
	connector.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	return connector
}

func TestNew(t *testing.T) {
	t.Run("requires credentials", func(t *testing.T) {
		_, err := New(Config{ClientID: "id"})

		assert.ErrorIs(t, err, ErrMissingCredentials)
	})

	t.Run("creates connector with defaults", func(t *testing.T) {
		connector, err := New(Config{ClientID: "id", ClientSecret: "secret"})

		require.NoError(t, err)
		assert.Equal(t, DefaultUserAgent, connector.client.userAgent)
		assert.Equal(t, DefaultAPIURL, connector.client.apiURL)
	})
}

func TestConnector_FetchThread(t *testing.T) {
	t.Run("flattens comments depth first", func(t *testing.T) {
		connector := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/comments/abc123", r.URL.Path)
			assert.Equal(t, "1", r.URL.Query().Get("raw_json"))
			assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
			assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
			_, _ = w.Write([]byte(threadJSON))
		})

		thread, err := connector.FetchThread(context.Background(), "abc123")

		require.NoError(t, err)
		assert.Equal(t, "abc123", thread.ID)
		assert.Equal(t, "golang", thread.Subreddit)
		assert.Equal(t, "Generics in practice", thread.Title)
		assert.Equal(t, "How do you use them?", thread.Body)
		assert.Equal(t, 42, thread.Score)
		assert.Equal(t, time.Unix(1700000000, 0).UTC(), thread.CreatedAt)
		assert.Equal(t, "https://www.reddit.com/r/golang/comments/abc123/generics_in_practice/", thread.URL())

		require.Len(t, thread.Comments, 3)
		assert.Equal(t, "c1", thread.Comments[0].ID)
		assert.Equal(t, 0, thread.Comments[0].Depth)
		assert.Equal(t, "c2", thread.Comments[1].ID)
		assert.Equal(t, 1, thread.Comments[1].Depth)
		assert.Equal(t, "[deleted]", thread.Comments[1].Author)
		assert.Equal(t, "c3", thread.Comments[2].ID)
		assert.Equal(t, 0, thread.Comments[2].Depth)
	})

	t.Run("accepts fullnames and urls", func(t *testing.T) {
		connector := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/comments/abc123", r.URL.Path)
			_, _ = w.Write([]byte(threadJSON))
		})

		_, err := connector.FetchThread(context.Background(), "t3_abc123")
		require.NoError(t, err)

		_, err = connector.FetchThread(context.Background(), "https://www.reddit.com/r/golang/comments/abc123/generics/")
		require.NoError(t, err)
	})

	t.Run("rejects invalid ids without a request", func(t *testing.T) {
		connector := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			t.Fatalf("unexpected request to %s", r.URL.Path)
		})

		_, err := connector.FetchThread(context.Background(), "../etc")

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("404 maps to not found", func(t *testing.T) {
		connector := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		})

		_, err := connector.FetchThread(context.Background(), "zzz999")

		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.Equal(t, "NotFound", domain.ErrorKind(err))
	})

	t.Run("empty listing maps to not found", func(t *testing.T) {
		connector := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[{"kind":"Listing","data":{"children":[]}}]`))
		})

		_, err := connector.FetchThread(context.Background(), "abc123")

		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("500 maps to upstream", func(t *testing.T) {
		connector := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		_, err := connector.FetchThread(context.Background(), "abc123")

		assert.ErrorIs(t, err, domain.ErrUpstream)
	})

	t.Run("malformed body maps to upstream", func(t *testing.T) {
		connector := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		})

		_, err := connector.FetchThread(context.Background(), "abc123")

		assert.ErrorIs(t, err, domain.ErrUpstream)
	})
}

func TestConnector_BrowseSubreddit(t *testing.T) {
	t.Run("lists threads without comments", func(t *testing.T) {
		connector := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/r/golang/new", r.URL.Path)
			assert.Equal(t, "5", r.URL.Query().Get("limit"))
			_, _ = w.Write([]byte(listingJSON))
		})

		threads, err := connector.BrowseSubreddit(context.Background(), "r/golang", domain.SortNew, 0)

		require.NoError(t, err)
		require.Len(t, threads, 2)
		assert.Equal(t, "p1", threads[0].ID)
		assert.Equal(t, "Second", threads[1].Title)
		assert.Empty(t, threads[0].Comments)
		assert.False(t, threads[0].FetchedAt.IsZero())
	})

	t.Run("clamps limit", func(t *testing.T) {
		connector := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "25", r.URL.Query().Get("limit"))
			_, _ = w.Write([]byte(listingJSON))
		})

		_, err := connector.BrowseSubreddit(context.Background(), "golang", domain.SortTop, 500)

		require.NoError(t, err)
	})

	t.Run("truncates to limit", func(t *testing.T) {
		connector := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(listingJSON))
		})

		threads, err := connector.BrowseSubreddit(context.Background(), "golang", domain.SortHot, 1)

		require.NoError(t, err)
		assert.Len(t, threads, 1)
	})

	t.Run("rejects unknown sort", func(t *testing.T) {
		connector := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			t.Fatalf("unexpected request to %s", r.URL.Path)
		})

		_, err := connector.BrowseSubreddit(context.Background(), "golang", domain.SortMode("rising"), 5)

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("redirect to search maps to not found", func(t *testing.T) {
		connector := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/subreddits/search") {
				_, _ = w.Write([]byte(`{"kind":"Listing","data":{"children":[]}}`))
				return
			}
			http.Redirect(w, r, "/subreddits/search?q=nosuchsub", http.StatusFound)
		})

		_, err := connector.BrowseSubreddit(context.Background(), "nosuchsub", domain.SortNew, 5)

		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("429 maps to rate limited", func(t *testing.T) {
		connector := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(HeaderRetryAfter, "30")
			w.WriteHeader(http.StatusTooManyRequests)
		})

		_, err := connector.BrowseSubreddit(context.Background(), "golang", domain.SortNew, 5)

		assert.ErrorIs(t, err, domain.ErrRateLimited)
		assert.True(t, IsRateLimited(err))
		var rle *RateLimitError
		require.True(t, errors.As(err, &rle))
		assert.False(t, rle.ResetAt.IsZero())
	})

	t.Run("cancelled context is returned as is", func(t *testing.T) {
		connector := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(listingJSON))
		})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := connector.BrowseSubreddit(ctx, "golang", domain.SortNew, 5)

		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestNormalizeSubreddit(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"golang", "golang", false},
		{"r/golang", "golang", false},
		{"/r/Python", "Python", false},
		{" rust ", "rust", false},
		{"", "", true},
		{"a", "", true},
		{"bad name", "", true},
		{"../admin", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeSubreddit(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultListingLimit, ClampLimit(0))
	assert.Equal(t, DefaultListingLimit, ClampLimit(-3))
	assert.Equal(t, 7, ClampLimit(7))
	assert.Equal(t, MaxListingLimit, ClampLimit(100))
}
