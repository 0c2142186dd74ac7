package api

import (
	"github.com/dmitrymomot/seoscope/handler"
)

// usage reports the plan, per-category consumption and the current period.
func (a *API) usage(ctx handler.Context, _ struct{}) handler.Response {
	userID, ok := currentUser(ctx)
	if !ok {
		return handler.JSONError(handler.ErrUnauthorized)
	}
	snap, err := a.Usage.Snapshot(ctx, userID)
	if err != nil {
		return a.fail(ctx, err)
	}
	return handler.JSON(snap)
}
