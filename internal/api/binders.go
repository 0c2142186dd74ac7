package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/seoscope/pkg/binder"
)

var (
	bindPath  = binder.Path(chi.URLParam)
	bindQuery = binder.Query()
	bindJSON  = binder.JSON()
)
