// Package publish renders digests as a static HTML page and an Atom feed.
package publish

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"github.com/gorilla/feeds"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/oliverbatey/forager/internal/core/domain"
	"github.com/oliverbatey/forager/internal/core/ports/driven"
	"github.com/oliverbatey/forager/internal/normalisers/markdown"
)

// Output file names.
const (
	IndexFile = "index.html"
	FeedFile  = "feed.atom"
)

// Ensure Publisher implements the interface.
var _ driven.Publisher = (*Publisher)(nil)

// Publisher writes index.html and feed.atom for a digest.
type Publisher struct {
	md   goldmark.Markdown
	page *template.Template
	now  func() time.Time
}

// New creates a publisher. Summaries are treated as GitHub-flavoured
// Markdown; raw HTML in model output is escaped.
func New() *Publisher {
	return &Publisher{
		md:   goldmark.New(goldmark.WithExtensions(extension.GFM)),
		page: template.Must(template.New("index").Parse(indexTemplate)),
		now:  time.Now,
	}
}

type pageData struct {
	Title   string
	Created string
	Summary template.HTML
	Threads []threadData
}

type threadData struct {
	Title    string
	URL      string
	Author   string
	Score    int
	Comments int
	Summary  template.HTML
}

// Publish renders digest into dir.
func (p *Publisher) Publish(ctx context.Context, dir string, digest *domain.Digest) ([]string, error) {
	if digest == nil {
		return nil, fmt.Errorf("publish: %w", domain.ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}

	index, err := p.renderIndex(digest)
	if err != nil {
		return nil, err
	}
	feed, err := p.renderFeed(digest)
	if err != nil {
		return nil, err
	}

	written := make([]string, 0, 2)
	for _, f := range []struct {
		name string
		data []byte
	}{{IndexFile, index}, {FeedFile, feed}} {
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, f.data, 0644); err != nil {
			return written, fmt.Errorf("write %s: %w", f.name, err)
		}
		written = append(written, path)
	}
	return written, nil
}

func (p *Publisher) renderIndex(digest *domain.Digest) ([]byte, error) {
	summary, err := p.markdown(digest.Summary)
	if err != nil {
		return nil, err
	}
	data := pageData{
		Title:   title(digest),
		Created: p.created(digest).UTC().Format("2 January 2006"),
		Summary: summary,
	}
	for i := range digest.Threads {
		t := &digest.Threads[i]
		td := threadData{
			Title:    t.Title,
			URL:      t.URL(),
			Author:   t.Author,
			Score:    t.Score,
			Comments: t.NumComments,
		}
		if s, ok := digest.SummaryFor(t.ID); ok {
			if td.Summary, err = p.markdown(s.Text); err != nil {
				return nil, err
			}
		}
		data.Threads = append(data.Threads, td)
	}

	var buf bytes.Buffer
	if err := p.page.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render index: %w", err)
	}
	return buf.Bytes(), nil
}

func (p *Publisher) renderFeed(digest *domain.Digest) ([]byte, error) {
	created := p.created(digest)
	link := "https://www.reddit.com/"
	if digest.Subreddit != "" {
		link += "r/" + digest.Subreddit + "/"
	}

	feed := &feeds.Feed{
		Title:       title(digest),
		Link:        &feeds.Link{Href: link},
		Description: markdown.Plain(digest.Summary),
		Created:     created,
		Updated:     created,
	}
	for i := range digest.Threads {
		t := &digest.Threads[i]
		item := &feeds.Item{
			Title:   t.Title,
			Link:    &feeds.Link{Href: t.URL()},
			Author:  &feeds.Author{Name: t.Author},
			Id:      t.URL(),
			Created: t.CreatedAt,
		}
		if s, ok := digest.SummaryFor(t.ID); ok {
			item.Description = markdown.Plain(s.Text)
		}
		feed.Items = append(feed.Items, item)
	}

	atom, err := feed.ToAtom()
	if err != nil {
		return nil, fmt.Errorf("render feed: %w", err)
	}
	return []byte(atom), nil
}

func (p *Publisher) markdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := p.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return template.HTML(buf.String()), nil //nolint:gosec // goldmark escapes raw HTML by default
}

func (p *Publisher) created(digest *domain.Digest) time.Time {
	if digest.CreatedAt.IsZero() {
		return p.now()
	}
	return digest.CreatedAt
}

func title(digest *domain.Digest) string {
	if digest.Subreddit == "" {
		return "Forager digest"
	}
	return "Forager digest: r/" + digest.Subreddit
}

const indexTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<link rel="alternate" type="application/atom+xml" href="feed.atom">
<style>
body { font-family: sans-serif; max-width: 48rem; margin: 2rem auto; line-height: 1.5; }
article { border-top: 1px solid #ddd; padding-top: 1rem; }
.meta { color: #666; font-size: 0.9rem; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p class="meta">{{.Created}}</p>
<section class="summary">{{.Summary}}</section>
{{range .Threads}}
<article>
<h2><a href="{{.URL}}">{{.Title}}</a></h2>
<p class="meta">by {{.Author}} · {{.Score}} points · {{.Comments}} comments</p>
{{.Summary}}
</article>
{{end}}
</body>
</html>
`
