package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/ericfisherdev/aimanager/internal/domain/model"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 4 << 20

// crudService is the operation set every entity service exposes.
type crudService[T, In, P any] interface {
	List(ctx context.Context, req model.PageRequest) (model.Page[T], error)
	Search(ctx context.Context, term string, fields []string, limit int) ([]T, error)
	Get(ctx context.Context, id int64) (*T, error)
	Create(ctx context.Context, in In) (*T, error)
	Update(ctx context.Context, id int64, patch P) (*T, error)
	Delete(ctx context.Context, id int64) error
}

// resource serves the CRUD routes of one entity type. list renders records
// in listings and after writes; detail renders a single read.
type resource[T, In, P, R any] struct {
	svc      crudService[T, In, P]
	noun     string
	list     func(T) R
	detail   func(T) R
	newInput func() In
	logger   *slog.Logger
}

func (res *resource[T, In, P, R]) register(mux *http.ServeMux, base string) {
	mux.HandleFunc("GET "+base, res.List)
	mux.HandleFunc("GET "+base+"/search", res.Search)
	mux.HandleFunc("GET "+base+"/{id}", res.Get)
	mux.HandleFunc("POST "+base, res.Create)
	mux.HandleFunc("PUT "+base+"/{id}", res.Update)
	mux.HandleFunc("DELETE "+base+"/{id}", res.Delete)
}

// List returns one page, newest first.
func (res *resource[T, In, P, R]) List(w http.ResponseWriter, r *http.Request) {
	req, ok := pageRequest(w, r)
	if !ok {
		return
	}

	page, err := res.svc.List(r.Context(), req)
	if err != nil {
		writeServiceError(w, res.logger, err, res.noun, "list")
		return
	}

	writeJSON(w, http.StatusOK, toPageResponse(page, res.list))
}

// Search matches any keyword of q in the comma-separated fields.
func (res *resource[T, In, P, R]) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := model.DefaultSearchLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	var fields []string
	if raw := q.Get("fields"); raw != "" {
		for _, f := range strings.Split(raw, ",") {
			if f = strings.TrimSpace(f); f != "" {
				fields = append(fields, f)
			}
		}
	}

	found, err := res.svc.Search(r.Context(), q.Get("q"), fields, limit)
	if err != nil {
		writeServiceError(w, res.logger, err, res.noun, "search")
		return
	}

	writeJSON(w, http.StatusOK, toSliceResponse(found, res.list))
}

// Get returns one record.
func (res *resource[T, In, P, R]) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	rec, err := res.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, res.logger, err, res.noun, "get")
		return
	}

	writeJSON(w, http.StatusOK, res.detail(*rec))
}

// Create stores a record from the request body.
func (res *resource[T, In, P, R]) Create(w http.ResponseWriter, r *http.Request) {
	var in In
	if res.newInput != nil {
		in = res.newInput()
	}
	if !decodeBody(w, r, &in) {
		return
	}

	rec, err := res.svc.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, res.logger, err, res.noun, "create")
		return
	}

	writeJSON(w, http.StatusCreated, res.list(*rec))
}

// Update applies the fields present in the request body.
func (res *resource[T, In, P, R]) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var patch P
	if !decodeBody(w, r, &patch) {
		return
	}

	rec, err := res.svc.Update(r.Context(), id, patch)
	if err != nil {
		writeServiceError(w, res.logger, err, res.noun, "update")
		return
	}

	writeJSON(w, http.StatusOK, res.list(*rec))
}

// Delete removes a record.
func (res *resource[T, In, P, R]) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := res.svc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, res.logger, err, res.noun, "delete")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// pathID parses the {id} path value, writing a 400 when it is not a
// positive integer.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

// pageRequest reads ?page= and ?limit=. Missing values use the defaults.
func pageRequest(w http.ResponseWriter, r *http.Request) (model.PageRequest, bool) {
	var req model.PageRequest
	q := r.URL.Query()

	for _, p := range []struct {
		name string
		dst  *int
	}{{"page", &req.Page}, {"limit", &req.Limit}} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid "+p.name)
			return req, false
		}
		*p.dst = n
	}

	return req.Normalize(), true
}

// decodeBody decodes a JSON request body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
