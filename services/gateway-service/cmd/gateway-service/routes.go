package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/md-rashed-zaman/apptbook/libs/auth"
	"github.com/md-rashed-zaman/apptbook/libs/config"
	"github.com/md-rashed-zaman/apptbook/libs/httpx"
)

type upstreams struct {
	Auth    *url.URL
	Booking *url.URL
}

func upstreamsFromEnv() (upstreams, error) {
	authURL, err := url.Parse(config.String("AUTH_URL", "http://auth-service:8081"))
	if err != nil {
		return upstreams{}, fmt.Errorf("AUTH_URL: %w", err)
	}
	bookingURL, err := url.Parse(config.String("BOOKING_URL", "http://booking-service:8083"))
	if err != nil {
		return upstreams{}, fmt.Errorf("BOOKING_URL: %w", err)
	}
	return upstreams{Auth: authURL, Booking: bookingURL}, nil
}

// registerRoutes puts auth and booking behind one origin. Appointment routes other
// than the public availability grid are rejected here when the bearer token is bad;
// the booking service still verifies it again.
func registerRoutes(r chi.Router, up upstreams, jwtSecret string, logger *slog.Logger) {
	authProxy := newProxy(up.Auth, logger)
	bookingProxy := newProxy(up.Booking, logger)

	r.Handle("/api/v1/auth/*", authProxy)
	r.Handle("/api/v1/appointments/available", bookingProxy)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireBearer(jwtSecret))
		r.Handle("/api/v1/appointments", bookingProxy)
		r.Handle("/api/v1/appointments/*", bookingProxy)
	})
}

func newProxy(target *url.URL, logger *slog.Logger) *httputil.ReverseProxy {
	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.Transport = otelhttp.NewTransport(http.DefaultTransport)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("upstream unavailable",
			"upstream", target.Host,
			"path", r.URL.Path,
			"request_id", httpx.RequestIDFromContext(r.Context()),
			"err", err,
		)
		httpx.WriteError(w, http.StatusBadGateway, "Upstream unavailable")
	}
	return proxy
}

// upstreamReady probes the upstream's /healthz.
func upstreamReady(target *url.URL) func(context.Context) error {
	client := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	endpoint := target.JoinPath("/healthz").String()
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("healthz returned %d", resp.StatusCode)
		}
		return nil
	}
}
