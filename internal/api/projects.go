package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/dmitrymomot/seoscope/handler"
	"github.com/dmitrymomot/seoscope/internal/projects"
)

type projectRequest struct {
	ProjectID uuid.UUID `path:"projectID" json:"-"`
}

type trackKeywordRequest struct {
	ProjectID uuid.UUID `path:"projectID" json:"-"`
	projects.TrackInput
}

type keywordRequest struct {
	ProjectID uuid.UUID `path:"projectID" json:"-"`
	KeywordID uuid.UUID `path:"keywordID" json:"-"`
}

func (a *API) listProjects(ctx handler.Context, _ struct{}) handler.Response {
	userID, _ := currentUser(ctx)
	list, err := a.Projects.List(ctx, userID)
	if err != nil {
		return a.fail(ctx, err)
	}
	return handler.JSON(map[string]any{"projects": list})
}

func (a *API) importProject(ctx handler.Context, req projects.ImportInput) handler.Response {
	userID, _ := currentUser(ctx)
	p, err := a.Projects.Import(ctx, userID, req)
	if err != nil {
		return a.fail(ctx, err)
	}
	return handler.JSON(p, handler.WithStatus(http.StatusCreated))
}

func (a *API) getProject(ctx handler.Context, req projectRequest) handler.Response {
	userID, _ := currentUser(ctx)
	p, err := a.Projects.Get(ctx, userID, req.ProjectID)
	if err != nil {
		return a.fail(ctx, err)
	}
	return handler.JSON(p)
}

func (a *API) deleteProject(ctx handler.Context, req projectRequest) handler.Response {
	userID, _ := currentUser(ctx)
	if err := a.Projects.Delete(ctx, userID, req.ProjectID); err != nil {
		return a.fail(ctx, err)
	}
	return handler.JSON(map[string]any{"deleted": true})
}

func (a *API) listKeywords(ctx handler.Context, req projectRequest) handler.Response {
	userID, _ := currentUser(ctx)
	keywords, err := a.Projects.Keywords(ctx, userID, req.ProjectID)
	if err != nil {
		return a.fail(ctx, err)
	}
	return handler.JSON(map[string]any{"keywords": keywords})
}

func (a *API) trackKeyword(ctx handler.Context, req trackKeywordRequest) handler.Response {
	userID, _ := currentUser(ctx)
	kw, err := a.Projects.Track(ctx, userID, req.ProjectID, req.TrackInput)
	if err != nil {
		return a.fail(ctx, err)
	}
	return handler.JSON(kw, handler.WithStatus(http.StatusCreated))
}

func (a *API) untrackKeyword(ctx handler.Context, req keywordRequest) handler.Response {
	userID, _ := currentUser(ctx)
	if err := a.Projects.Untrack(ctx, userID, req.ProjectID, req.KeywordID); err != nil {
		return a.fail(ctx, err)
	}
	return handler.JSON(map[string]any{"deleted": true})
}
