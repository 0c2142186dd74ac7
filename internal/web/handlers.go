// Package web serves the public marketing pages: pricing, blog and legal.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/seoscope/handler"
	"github.com/dmitrymomot/seoscope/pkg/binder"
	"github.com/dmitrymomot/seoscope/pkg/logger"
	"github.com/dmitrymomot/seoscope/pkg/quota"
	"github.com/dmitrymomot/seoscope/pkg/sanity"
)

const blogPageSize = 20

// BlogSource reads published posts. *sanity.Client implements it.
type BlogSource interface {
	ListPosts(ctx context.Context, limit int) ([]sanity.Post, error)
	PostBySlug(ctx context.Context, slug string) (*sanity.Post, error)
}

type Handlers struct {
	plans []PlanView
	blog  BlogSource
	log   *slog.Logger
}

type Option func(*Handlers)

func WithLogger(l *slog.Logger) Option {
	return func(h *Handlers) { h.log = l }
}

// WithBlog enables the blog. Without it the blog index is empty.
func WithBlog(b BlogSource) Option {
	return func(h *Handlers) { h.blog = b }
}

func New(table *quota.Table, opts ...Option) *Handlers {
	h := &Handlers{plans: Plans(table), log: logger.Discard()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Plans returns the pricing view of every plan in display order.
func Plans(table *quota.Table) []PlanView {
	out := make([]PlanView, 0, len(quota.Plans))
	for _, p := range quota.Plans {
		spec, ok := table.Plan(p)
		if !ok {
			continue
		}
		out = append(out, PlanView{
			Plan:         p,
			Name:         spec.Name,
			Description:  spec.Description,
			PriceMonthly: spec.PriceMonthly,
			Limits:       spec.Limits,
		})
	}
	return out
}

type slugRequest struct {
	Slug string `path:"slug"`
}

type docRequest struct {
	Doc string `path:"doc"`
}

// Routes mounts the public pages.
func (h *Handlers) Routes() chi.Router {
	r := chi.NewRouter()
	errs := handler.NewErrorHandler[handler.Context](h.log)

	r.Get("/", handler.Wrap(func(_ handler.Context, _ struct{}) handler.Response {
		return handler.Redirect("/pricing", http.StatusFound)
	}))
	r.Get("/pricing", handler.Wrap(h.pricing, handler.WithErrorHandler[handler.Context, struct{}](errs)))
	r.Get("/blog", handler.Wrap(h.blogIndex, handler.WithErrorHandler[handler.Context, struct{}](errs)))
	r.Get("/blog/{slug}", handler.Wrap(h.blogPost,
		handler.WithBinders[handler.Context, slugRequest](binder.Path(chi.URLParam)),
		handler.WithErrorHandler[handler.Context, slugRequest](errs),
	))
	r.Get("/legal/{doc}", handler.Wrap(h.legal,
		handler.WithBinders[handler.Context, docRequest](binder.Path(chi.URLParam)),
		handler.WithErrorHandler[handler.Context, docRequest](errs),
	))
	return r
}

func (h *Handlers) pricing(_ handler.Context, _ struct{}) handler.Response {
	return handler.Templ(PricingPage(h.plans), http.StatusOK)
}

// PricingAPI serves the plan table as JSON. It is mounted by the API router.
func (h *Handlers) PricingAPI() http.HandlerFunc {
	return handler.Wrap(func(_ handler.Context, _ struct{}) handler.Response {
		return handler.JSON(map[string]any{"plans": h.plans})
	})
}

func (h *Handlers) blogIndex(ctx handler.Context, _ struct{}) handler.Response {
	if h.blog == nil {
		return handler.Templ(BlogIndexPage(nil), http.StatusOK)
	}
	posts, err := h.blog.ListPosts(ctx, blogPageSize)
	if err != nil {
		if errors.Is(err, sanity.ErrDisabled) {
			return handler.Templ(BlogIndexPage(nil), http.StatusOK)
		}
		h.log.ErrorContext(ctx, "list blog posts", logger.Error(err))
		return handler.Templ(BlogIndexPage(nil), http.StatusOK)
	}
	return handler.Templ(BlogIndexPage(posts), http.StatusOK)
}

func (h *Handlers) blogPost(ctx handler.Context, req slugRequest) handler.Response {
	if h.blog == nil || req.Slug == "" {
		return handler.Templ(NotFoundPage("This post"), http.StatusNotFound)
	}
	post, err := h.blog.PostBySlug(ctx, req.Slug)
	switch {
	case errors.Is(err, sanity.ErrPostNotFound), errors.Is(err, sanity.ErrDisabled):
		return handler.Templ(NotFoundPage("This post"), http.StatusNotFound)
	case err != nil:
		return handler.JSONError(err)
	}
	return handler.Templ(BlogPostPage(post), http.StatusOK)
}

func (h *Handlers) legal(_ handler.Context, req docRequest) handler.Response {
	doc, ok := legalDocs[req.Doc]
	if !ok {
		return handler.Templ(NotFoundPage("This page"), http.StatusNotFound)
	}
	return handler.Templ(LegalPage(doc), http.StatusOK)
}
