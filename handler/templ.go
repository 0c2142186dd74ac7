package handler

import (
	"net/http"

	"github.com/a-h/templ"
)

type templResponse struct {
	component templ.Component
	status    int
}

// Templ renders an HTML component with status.
func Templ(c templ.Component, status int) Response {
	if status == 0 {
		status = http.StatusOK
	}
	return templResponse{component: c, status: status}
}

func (t templResponse) Render(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(t.status)
	return t.component.Render(r.Context(), w)
}

type redirectResponse struct {
	url    string
	status int
}

// Redirect answers with a redirect to url.
func Redirect(url string, status int) Response {
	if status == 0 {
		status = http.StatusSeeOther
	}
	return redirectResponse{url: url, status: status}
}

func (rr redirectResponse) Render(w http.ResponseWriter, r *http.Request) error {
	http.Redirect(w, r, rr.url, rr.status)
	return nil
}

type rawResponse struct {
	contentType string
	header      http.Header
	body        []byte
}

// Raw writes body with the given content type and extra headers.
func Raw(contentType string, body []byte, header http.Header) Response {
	return rawResponse{contentType: contentType, body: body, header: header}
}

func (rr rawResponse) Render(w http.ResponseWriter, _ *http.Request) error {
	for k, vals := range rr.header {
		for _, v := range vals {
			w.Header().Add(k, v)
		}
	}
	w.Header().Set("Content-Type", rr.contentType)
	w.WriteHeader(http.StatusOK)
	_, err := w.Write(rr.body)
	return err
}
