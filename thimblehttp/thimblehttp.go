// Package thimblehttp connects an Environment to chi routers: each request
// gets its own request scope, and handlers are resolved per request so they
// can inject request scoped values, the *http.Request itself and its URL
// parameters.
package thimblehttp

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/danpasecinic/thimble"
)

// URLParams holds the chi route parameters of the current request.
type URLParams map[string]string

func (p URLParams) Get(key string) string {
	return p[key]
}

type requestKey struct{}

var errNoRequest = errors.New("thimblehttp: no request in context")

// WithRequest stores r in ctx for the *http.Request and URLParams providers.
func WithRequest(ctx context.Context, r *http.Request) context.Context {
	return context.WithValue(ctx, requestKey{}, r)
}

func RequestFrom(ctx context.Context) (*http.Request, bool) {
	r, ok := ctx.Value(requestKey{}).(*http.Request)
	return r, ok
}

// Install registers prototype providers for *http.Request and URLParams.
// Both read the request carried by the resolving context and fail outside
// a request.
func Install(env *thimble.Environment) error {
	err := thimble.Provide(env, func(ctx context.Context, _ thimble.Resolver) (*http.Request, error) {
		r, ok := RequestFrom(ctx)
		if !ok {
			return nil, errNoRequest
		}
		return r, nil
	}, thimble.WithScope(thimble.Prototype))
	if err != nil {
		return err
	}

	return thimble.Provide(env, func(ctx context.Context, _ thimble.Resolver) (URLParams, error) {
		r, ok := RequestFrom(ctx)
		if !ok {
			return nil, errNoRequest
		}
		return urlParams(r), nil
	}, thimble.WithScope(thimble.Prototype))
}

func urlParams(r *http.Request) URLParams {
	params := URLParams{}
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return params
	}
	for i, key := range rctx.URLParams.Keys {
		if i < len(rctx.URLParams.Values) {
			params[key] = rctx.URLParams.Values[i]
		}
	}
	return params
}

// Middleware opens a request scope for every request and releases it, which
// destroys the request's instances, once the handler returns.
func Middleware(env *thimble.Environment) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := thimble.WithRequestScope(r.Context())
			defer func() {
				if err := thimble.ReleaseRequestScope(ctx); err != nil {
					env.Logger().Warn("releasing request scope failed",
						"method", r.Method,
						"path", r.URL.Path,
						"error", err,
					)
				}
			}()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Handler resolves T for every request and lets it serve the request.
func Handler[T http.Handler](env *thimble.Environment, qualifiers ...thimble.Qualifier) http.Handler {
	return HandlerFunc(env, func(h T, w http.ResponseWriter, r *http.Request) {
		h.ServeHTTP(w, r)
	}, qualifiers...)
}

// HandlerFunc resolves T for every request and passes it to fn. A resolution
// failure answers 500 and is logged.
func HandlerFunc[T any](
	env *thimble.Environment,
	fn func(T, http.ResponseWriter, *http.Request),
	qualifiers ...thimble.Qualifier,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := WithRequest(r.Context(), r)
		v, err := thimble.GetCtx[T](ctx, env, qualifiers...)
		if err != nil {
			env.Logger().Error("resolving handler failed",
				"handler", thimble.TypeName[T](),
				"method", r.Method,
				"path", r.URL.Path,
				"error", err,
			)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		fn(v, w, r)
	}
}
