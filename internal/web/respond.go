// internal/web/respond.go
//
// JSON response helpers shared by the admin and public handlers.
//
// Context
// -------
// Every handler finishes through respond or respondErr.  respondErr maps
// the domain sentinel errors onto HTTP statuses in one place, so handlers
// never switch on errors themselves.  Unrecognized errors log at ERROR
// and surface as an opaque 500; sentinel errors log at DEBUG only, since
// a missing slug is client noise, not an operational event.
//
// Notes
// -----
//   - Oxford commas, two spaces after periods.
package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/SidebySideWeb/ftiaxesitecms/internal/editor"
	"github.com/SidebySideWeb/ftiaxesitecms/internal/page"
	"github.com/SidebySideWeb/ftiaxesitecms/internal/post"
	"github.com/SidebySideWeb/ftiaxesitecms/internal/settings"
	"github.com/SidebySideWeb/ftiaxesitecms/internal/tenant"
	"github.com/SidebySideWeb/ftiaxesitecms/internal/version"
)

// errorBody is the uniform error envelope.
type errorBody struct {
	Error string `json:"error"`
}

// respond writes v as JSON with the given status.  A nil v writes just
// the status, for 204-style replies.
func respond(w http.ResponseWriter, status int, v any) {
	if v == nil {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.S().Errorw("encode response", "err", err)
	}
}

// respondErr maps err to an HTTP status and writes the error envelope.
func respondErr(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors

	switch {
	case errors.As(err, &verrs):
		respond(w, http.StatusUnprocessableEntity, errorBody{Error: verrs.Error()})
	case errors.Is(err, page.ErrNotFound),
		errors.Is(err, post.ErrNotFound),
		errors.Is(err, tenant.ErrNotFound),
		errors.Is(err, settings.ErrNotFound),
		errors.Is(err, version.ErrNotFound),
		errors.Is(err, version.ErrNoVersions):
		respond(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, page.ErrSlugTaken),
		errors.Is(err, post.ErrSlugTaken),
		errors.Is(err, tenant.ErrSlugTaken),
		errors.Is(err, version.ErrSequenceConflict):
		respond(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.Is(err, editor.ErrUnsaved):
		respond(w, http.StatusConflict, errorBody{Error: err.Error()})
	default:
		zap.S().Errorw("request failed", "err", err)
		respond(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

// decode reads the request body into dst, rejecting unknown fields.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
