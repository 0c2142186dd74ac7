package sanity

import (
	"context"
	"strings"
	"time"
)

// Post is a published blog article.
type Post struct {
	ID          string    `json:"_id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Excerpt     string    `json:"excerpt"`
	Author      string    `json:"author"`
	PublishedAt time.Time `json:"publishedAt"`
	Body        []Block   `json:"body,omitempty"`
}

// Block is a portable text block.
type Block struct {
	Type     string `json:"_type"`
	Style    string `json:"style"`
	Children []Span `json:"children"`
}

// Span is a run of text inside a block.
type Span struct {
	Text string `json:"text"`
}

// Text joins the spans of the block.
func (b Block) Text() string {
	var sb strings.Builder
	for _, s := range b.Children {
		sb.WriteString(s.Text)
	}
	return sb.String()
}

const postFields = `_id, title, "slug": slug.current, excerpt, "author": author->name, publishedAt`

const listPostsQuery = `*[_type == "post" && defined(slug.current) && publishedAt <= now()] | order(publishedAt desc) [0...$limit] {` + postFields + `}`

const postBySlugQuery = `*[_type == "post" && slug.current == $slug][0] {` + postFields + `, body}`

// ListPosts returns the newest published posts without bodies.
func (c *Client) ListPosts(ctx context.Context, limit int) ([]Post, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var posts []Post
	if err := c.Query(ctx, listPostsQuery, map[string]any{"limit": limit}, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// PostBySlug returns one post with its body.
func (c *Client) PostBySlug(ctx context.Context, slug string) (*Post, error) {
	var post *Post
	if err := c.Query(ctx, postBySlugQuery, map[string]any{"slug": slug}, &post); err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrPostNotFound
	}
	return post, nil
}
