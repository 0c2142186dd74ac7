// Package binder fills request structs from JSON bodies, query strings and
// path parameters, then validates them.
package binder

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/dmitrymomot/seoscope/pkg/validator"
)

// Func binds part of a request into v, a pointer to struct.
type Func func(r *http.Request, v any) error

// MaxJSONBody caps decoded request bodies.
const MaxJSONBody = 1 << 20

// JSON decodes an application/json body, rejecting unknown fields and
// trailing data. Requests without a body return ErrNotApplicable.
func JSON() Func {
	return func(r *http.Request, v any) error {
		if r.Body == nil || r.Body == http.NoBody || (r.ContentLength == 0 && r.Header.Get("Content-Type") == "") {
			return ErrNotApplicable
		}

		mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mediaType != "application/json" {
			return fmt.Errorf("%w: expected application/json", ErrUnsupportedMediaType)
		}

		dec := json.NewDecoder(io.LimitReader(r.Body, MaxJSONBody+1))
		dec.DisallowUnknownFields()
		if err := dec.Decode(v); err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) && r.ContentLength > MaxJSONBody {
				return ErrBodyTooLarge
			}
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("%w: empty body", ErrFailedToParseJSON)
			}
			return fmt.Errorf("%w: %v", ErrFailedToParseJSON, err)
		}
		if dec.More() {
			return fmt.Errorf("%w: unexpected data after JSON object", ErrFailedToParseJSON)
		}
		return nil
	}
}

// Query binds fields tagged `query:"name"` from the URL query string.
func Query() Func {
	return func(r *http.Request, v any) error {
		return bindToStruct(v, "query", r.URL.Query(), ErrFailedToParseQuery)
	}
}

// Path binds fields tagged `path:"name"` using extractor, for example chi.URLParam.
func Path(extractor func(r *http.Request, name string) string) Func {
	return func(r *http.Request, v any) error {
		values := make(map[string][]string)
		for _, name := range tagNames(v, "path") {
			if s := extractor(r, name); s != "" {
				values[name] = []string{s}
			}
		}
		return bindToStruct(v, "path", values, ErrFailedToParsePath)
	}
}

// Validate runs struct validation rules. Place it after the other binders.
func Validate() Func {
	return func(_ *http.Request, v any) error {
		return validator.Struct(v)
	}
}
