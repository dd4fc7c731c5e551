// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package deeplink

import (
	"context"
	"fmt"
	"net/http"
	"time"

	xglog "github.com/ManuGH/lootsurvivor/internal/log"
	platformnet "github.com/ManuGH/lootsurvivor/internal/platform/net"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	rateWindow     = time.Minute
	handlerTimeout = 30 * time.Second
)

const donePage = `<!doctype html><html><head><meta charset="utf-8"><title>Loot Survivor</title></head>` +
	`<body><p>You can close this window and return to Loot Survivor.</p></body></html>`

const failedPage = `<!doctype html><html><head><meta charset="utf-8"><title>Loot Survivor</title></head>` +
	`<body><p>Login could not be completed. Return to Loot Survivor and try again.</p></body></html>`

// Routes returns the receiver's HTTP handler. Only the redirect route is
// rate limited.
func (r *Receiver) Routes() http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.Recoverer)

	mux.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	if r.cfg.Metrics {
		mux.Handle("/metrics", promhttp.Handler())
	}
	mux.With(rateLimit(r.cfg.RateLimit)).Get(RedirectPath, r.handleRedirect)

	return otelhttp.NewHandler(mux, "deeplink",
		otelhttp.WithFilter(func(req *http.Request) bool { return req.URL.Path == RedirectPath }),
	)
}

// rateLimit caps redirects per client. Loopback callers all share an IP, so
// this bounds local tabs replaying the redirect.
func rateLimit(perMinute int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(perMinute, rateWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(rateWindow.Seconds())))
			http.Error(w, "too many requests", http.StatusTooManyRequests)
		}),
	)
}

func (r *Receiver) handleRedirect(w http.ResponseWriter, req *http.Request) {
	raw := "http://" + req.Host + req.URL.RequestURI()
	logger := xglog.WithComponentFromContext(req.Context(), "deeplink")

	// Registration may outlive the browser request.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(req.Context()), handlerTimeout)
	defer cancel()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Referrer-Policy", "no-referrer")

	if err := r.handler.HandleDeepLink(ctx, raw); err != nil {
		logger.Warn().Err(err).Str(xglog.FieldURL, platformnet.SanitizeURL(raw)).Msg("redirect not handled")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(failedPage))
		return
	}
	logger.Debug().Str(xglog.FieldURL, platformnet.SanitizeURL(raw)).Msg("redirect handled")
	_, _ = w.Write([]byte(donePage))
}
