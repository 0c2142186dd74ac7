package web

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/seoscope/pkg/quota"
	"github.com/dmitrymomot/seoscope/pkg/sanity"
)

func write(w io.Writer, parts ...string) error {
	for _, p := range parts {
		if _, err := io.WriteString(w, p); err != nil {
			return err
		}
	}
	return nil
}

func esc(s string) string { return templ.EscapeString(s) }

func layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := write(w,
			`<!doctype html><html lang="en"><head><meta charset="utf-8">`,
			`<meta name="viewport" content="width=device-width, initial-scale=1">`,
			`<title>`, esc(title), ` · Seoscope</title>`,
			`<link rel="stylesheet" href="/static/app.css"></head><body>`,
			`<header class="nav"><a href="/" class="brand">Seoscope</a>`,
			`<nav><a href="/pricing">Pricing</a><a href="/blog">Blog</a><a href="/login">Sign in</a></nav></header>`,
			`<main>`,
		); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		return write(w,
			`</main><footer><a href="/legal/privacy">Privacy</a> · <a href="/legal/terms">Terms</a></footer>`,
			`</body></html>`,
		)
	})
}

// PlanView is a pricing table column.
type PlanView struct {
	Plan         quota.PlanType                 `json:"plan"`
	Name         string                         `json:"name"`
	Description  string                         `json:"description"`
	PriceMonthly int64                          `json:"priceMonthly"`
	Limits       map[quota.Category]quota.Limit `json:"limits"`
}

// Price formats cents as whole dollars.
func (p PlanView) Price() string {
	if p.PriceMonthly == 0 {
		return "Free"
	}
	return fmt.Sprintf("$%d/mo", p.PriceMonthly/100)
}

var categoryLabels = map[quota.Category]string{
	quota.KeywordSearches:      "Keyword searches / month",
	quota.BacklinkAnalyses:     "Backlink analyses / month",
	quota.AuditPages:           "Audited pages / month",
	quota.DomainAnalyses:       "Domain analyses / month",
	quota.TrackedKeywords:      "Tracked keywords",
	quota.Projects:             "Projects",
	quota.Exports:              "Exports / month",
	quota.AIVisibilityRequests: "AI visibility checks / month",
}

// PricingPage lists every plan with its limits.
func PricingPage(plans []PlanView) templ.Component {
	return layout("Pricing", templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if err := write(w, `<h1>Plans and pricing</h1><div class="plans">`); err != nil {
			return err
		}
		for _, p := range plans {
			if err := write(w,
				`<section class="plan" id="plan-`, esc(p.Plan.String()), `">`,
				`<h2>`, esc(p.Name), `</h2>`,
				`<p class="price">`, esc(p.Price()), `</p>`,
				`<p>`, esc(p.Description), `</p><ul>`,
			); err != nil {
				return err
			}
			for _, cat := range quota.Categories {
				limit, ok := p.Limits[cat]
				if !ok {
					continue
				}
				if err := write(w, `<li><strong>`, esc(limit.String()), `</strong> `, esc(categoryLabels[cat]), `</li>`); err != nil {
					return err
				}
			}
			cta := `<a class="button" href="/register">Start free</a>`
			if p.PriceMonthly > 0 {
				cta = `<a class="button" href="/register?plan=` + esc(p.Plan.String()) + `">Choose ` + esc(p.Name) + `</a>`
			}
			if err := write(w, `</ul>`, cta, `</section>`); err != nil {
				return err
			}
		}
		return write(w, `</div>`)
	}))
}

// BlogIndexPage lists posts. An empty list shows a placeholder.
func BlogIndexPage(posts []sanity.Post) templ.Component {
	return layout("Blog", templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if err := write(w, `<h1>Blog</h1>`); err != nil {
			return err
		}
		if len(posts) == 0 {
			return write(w, `<p class="empty">No posts yet. Check back soon.</p>`)
		}
		if err := write(w, `<ul class="posts">`); err != nil {
			return err
		}
		for _, p := range posts {
			if err := write(w,
				`<li><a href="/blog/`, esc(p.Slug), `">`, esc(p.Title), `</a>`,
				`<time datetime="`, p.PublishedAt.Format("2006-01-02"), `">`, p.PublishedAt.Format("Jan 2, 2006"), `</time>`,
				`<p>`, esc(p.Excerpt), `</p></li>`,
			); err != nil {
				return err
			}
		}
		return write(w, `</ul>`)
	}))
}

// BlogPostPage renders one article. Headings map from block styles.
func BlogPostPage(post *sanity.Post) templ.Component {
	return layout(post.Title, templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if err := write(w, `<article><h1>`, esc(post.Title), `</h1>`); err != nil {
			return err
		}
		if post.Author != "" {
			if err := write(w, `<p class="byline">By `, esc(post.Author), `</p>`); err != nil {
				return err
			}
		}
		for _, b := range post.Body {
			if b.Type != "block" {
				continue
			}
			tag := "p"
			switch b.Style {
			case "h2", "h3", "h4", "blockquote":
				tag = b.Style
			}
			if err := write(w, "<", tag, ">", esc(b.Text()), "</", tag, ">"); err != nil {
				return err
			}
		}
		return write(w, `</article>`)
	}))
}

// LegalDoc is a static legal page.
type LegalDoc struct {
	Slug     string
	Title    string
	Sections []string
}

var legalDocs = map[string]LegalDoc{
	"privacy": {
		Slug:  "privacy",
		Title: "Privacy Policy",
		Sections: []string{
			"We store your email address, name and a hash of your password to operate your account.",
			"Billing details are handled by Stripe. We keep only the Stripe customer and subscription identifiers.",
			"Domains, URLs and keywords you analyze are sent to DataForSEO to produce reports.",
			"We keep monthly usage counters to enforce plan limits. You can ask us to delete your account at any time.",
		},
	},
	"terms": {
		Slug:  "terms",
		Title: "Terms of Service",
		Sections: []string{
			"Each plan includes the monthly limits shown on the pricing page. Limits reset at the start of every calendar month (UTC).",
			"Paid plans renew monthly until canceled. A canceled plan stays active until the end of the paid period.",
			"Do not use the service to analyze sites you are not permitted to analyze or to resell raw provider data.",
		},
	},
}

// LegalPage renders a legal document.
func LegalPage(doc LegalDoc) templ.Component {
	return layout(doc.Title, templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if err := write(w, `<article class="legal"><h1>`, esc(doc.Title), `</h1>`); err != nil {
			return err
		}
		for _, s := range doc.Sections {
			if err := write(w, `<p>`, esc(s), `</p>`); err != nil {
				return err
			}
		}
		return write(w, `</article>`)
	}))
}

// NotFoundPage is shown for unknown posts and documents.
func NotFoundPage(what string) templ.Component {
	return layout("Not found", templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return write(w, `<h1>Not found</h1><p>`, esc(strings.TrimSpace(what+" could not be found.")), `</p>`)
	}))
}
