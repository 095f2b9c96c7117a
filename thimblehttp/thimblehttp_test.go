package thimblehttp_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpasecinic/thimble"
	"github.com/danpasecinic/thimble/thimblehttp"
)

type closeLog struct {
	mu     sync.Mutex
	closed []string
}

func (l *closeLog) add(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = append(l.closed, name)
}

func (l *closeLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.closed...)
}

type Tx struct {
	Log *closeLog     `inject:""`
	Req *http.Request `inject:""`
}

func (tx *Tx) PreDestroy() {
	tx.Log.add(tx.Req.URL.Path)
}

type UserHandler struct {
	Tx     *Tx                   `inject:""`
	Same   *Tx                   `inject:""`
	Params thimblehttp.URLParams `inject:""`
}

func (h *UserHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_, _ = fmt.Fprintf(w, "user=%s same=%t", h.Params.Get("id"), h.Tx == h.Same)
}

type Broken struct {
	Missing *closeLog `inject:"nowhere"`
}

func (b *Broken) ServeHTTP(http.ResponseWriter, *http.Request) {}

func newRouter(t *testing.T) (*chi.Mux, *thimble.Environment, *closeLog) {
	t.Helper()

	env := thimble.New()
	log := &closeLog{}
	require.NoError(t, thimblehttp.Install(env))
	require.NoError(t, thimble.ProvideValue(env, log))
	require.NoError(t, thimble.Register[*Tx](env, thimble.WithScope(thimble.Request)))
	require.NoError(t, thimble.Register[*UserHandler](env))
	require.NoError(t, thimble.Register[*Broken](env))

	r := chi.NewRouter()
	r.Use(thimblehttp.Middleware(env))
	r.Method(http.MethodGet, "/users/{id}", thimblehttp.Handler[*UserHandler](env))
	r.Method(http.MethodGet, "/broken", thimblehttp.Handler[*Broken](env))
	return r, env, log
}

func TestHandler_RequestScope(t *testing.T) {
	t.Parallel()

	r, _, log := newRouter(t)

	for _, id := range []string{"1", "2"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/"+id, nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "user="+id+" same=true", rec.Body.String())
	}

	assert.Equal(t, []string{"/users/1", "/users/2"}, log.list())
}

func TestHandler_ResolutionFailure(t *testing.T) {
	t.Parallel()

	r, _, _ := newRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/broken", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandlerFunc(t *testing.T) {
	t.Parallel()

	env := thimble.New()
	require.NoError(t, thimblehttp.Install(env))
	require.NoError(t, thimble.ProvideValue(env, &closeLog{}))

	r := chi.NewRouter()
	r.Use(thimblehttp.Middleware(env))
	r.Get("/items/{name}", thimblehttp.HandlerFunc(env,
		func(p thimblehttp.URLParams, w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(p.Get("name")))
		},
	))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/spoon", nil))
	assert.Equal(t, "spoon", rec.Body.String())
}

func TestInstall_OutsideRequest(t *testing.T) {
	t.Parallel()

	env := thimble.New()
	require.NoError(t, thimblehttp.Install(env))

	_, err := thimble.Get[*http.Request](env)
	assert.Error(t, err)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	got, err := thimble.GetCtx[*http.Request](thimblehttp.WithRequest(context.Background(), req), env)
	require.NoError(t, err)
	assert.Same(t, req, got)

	params, err := thimble.GetCtx[thimblehttp.URLParams](thimblehttp.WithRequest(context.Background(), req), env)
	require.NoError(t, err)
	assert.Empty(t, params)
}

type flakyDB struct{ err error }

func (db *flakyDB) HealthCheck(context.Context) error    { return db.err }
func (db *flakyDB) ReadinessCheck(context.Context) error { return nil }

func TestHealthRoutes(t *testing.T) {
	t.Parallel()

	env := thimble.New()
	db := &flakyDB{}
	require.NoError(t, thimble.ProvideValue(env, db))

	r := chi.NewRouter()
	r.Mount("/status", thimblehttp.HealthRoutes(env))

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	assert.Equal(t, http.StatusOK, get("/status/live").Code)
	assert.Equal(t, http.StatusOK, get("/status/ready").Code)

	rec := get("/status/health")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Status   string `json:"status"`
		Services []struct {
			Name   string `json:"name"`
			Status string `json:"status"`
		} `json:"services"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "up", body.Status)
	require.Len(t, body.Services, 1)
	assert.Contains(t, body.Services[0].Name, "flakyDB")

	db.err = errors.New("connection refused")
	assert.Equal(t, http.StatusServiceUnavailable, get("/status/live").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get("/status/health").Code)
	assert.Equal(t, http.StatusOK, get("/status/ready").Code)
}
