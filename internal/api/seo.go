package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrymomot/seoscope/handler"
	"github.com/dmitrymomot/seoscope/internal/seo"
)

type targetRequest struct {
	Target string `query:"target"`
}

type domainRequest struct {
	Domain string `query:"domain"`
}

func (a *API) keywordIdeas(ctx handler.Context, req seo.KeywordIdeasInput) handler.Response {
	userID, _ := currentUser(ctx)
	ideas, err := a.SEO.KeywordIdeas(ctx, userID, req)
	if err != nil {
		return a.fail(ctx, err)
	}
	return handler.JSON(map[string]any{"keyword": req.Keyword, "ideas": ideas})
}

func (a *API) exportKeywords(ctx handler.Context, req seo.ExportInput) handler.Response {
	userID, _ := currentUser(ctx)
	body, err := a.SEO.ExportKeywordIdeas(ctx, userID, req)
	if err != nil {
		return a.fail(ctx, err)
	}
	name := fmt.Sprintf("keywords-%s.csv", time.Now().UTC().Format("20060102"))
	return handler.Raw("text/csv; charset=utf-8", body, http.Header{
		"Content-Disposition": {fmt.Sprintf("attachment; filename=%q", name)},
	})
}

func (a *API) backlinks(ctx handler.Context, req targetRequest) handler.Response {
	userID, _ := currentUser(ctx)
	summary, err := a.SEO.Backlinks(ctx, userID, req.Target)
	if err != nil {
		return a.fail(ctx, err)
	}
	return handler.JSON(summary)
}

func (a *API) auditPages(ctx handler.Context, req seo.AuditInput) handler.Response {
	userID, _ := currentUser(ctx)
	pages, err := a.SEO.AuditPages(ctx, userID, req)
	if err != nil {
		return a.fail(ctx, err)
	}
	return handler.JSON(map[string]any{"pages": pages})
}

func (a *API) domainOverview(ctx handler.Context, req domainRequest) handler.Response {
	userID, _ := currentUser(ctx)
	overview, err := a.SEO.DomainOverview(ctx, userID, req.Domain)
	if err != nil {
		return a.fail(ctx, err)
	}
	return handler.JSON(overview)
}

func (a *API) aiVisibility(ctx handler.Context, req seo.AIVisibilityInput) handler.Response {
	userID, _ := currentUser(ctx)
	report, err := a.SEO.AIVisibility(ctx, userID, req)
	if err != nil {
		return a.fail(ctx, err)
	}
	return handler.JSON(report)
}
