package httpserver

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid/v5"

	"github.com/and161185/carenotes/internal/errs"
	"github.com/and161185/carenotes/internal/paginate"
)

// pathID parses a path parameter. A malformed ID cannot name an existing
// record, so it is reported as notFoundMsg.
func pathID(r *http.Request, name, notFoundMsg string) (uuid.UUID, error) {
	id, err := uuid.FromString(chi.URLParam(r, name))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, errs.NotFound(notFoundMsg)
	}
	return id, nil
}

// pageParams reads ?page=&limit=, falling back to the defaults for missing,
// malformed or non-positive values.
func pageParams(r *http.Request) (page, limit int) {
	q := r.URL.Query()
	return positiveInt(q.Get("page"), paginate.DefaultPage), positiveInt(q.Get("limit"), paginate.DefaultLimit)
}

func positiveInt(v string, def int) int {
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}
