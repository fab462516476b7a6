// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package web

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gatehouse/gatehouse/internal/auth"
)

const sessionCookieName = "gatehouse_session"

// identity is the resolved requester: a valid session and its user.
// Requests without one are anonymous and carry no identity.
type identity struct {
	session *auth.Session
	user    *auth.User
}

type contextKey int

const identityContextKey contextKey = iota

// identityFrom returns the request identity, or nil for anonymous requests.
func identityFrom(ctx context.Context) *identity {
	id, _ := ctx.Value(identityContextKey).(*identity)
	return id
}

// withIdentity resolves the session cookie on every request. Invalid or
// expired sessions degrade to anonymous and the stale cookie is cleared.
// A store failure gets the generic error page instead of degrading:
// bouncing a logged-in user to /login mid-outage would misreport their
// session as gone.
func (s *Server) withIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		session, user, err := s.auth.Resolve(r.Context(), cookie.Value)
		if err != nil {
			if auth.IsSessionInvalid(err) {
				s.clearSessionCookie(w)
				next.ServeHTTP(w, r)
				return
			}
			s.serverError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), identityContextKey, &identity{
			session: session,
			user:    user,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireLogin gates a handler behind authentication. Anonymous requests
// are redirected to the login page with the original path preserved so
// login can send them back where they were headed.
func (s *Server) requireLogin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if identityFrom(r.Context()) == nil {
			target := "/login?next=" + url.QueryEscape(r.URL.Path)
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

// statusRecorder captures the response status for request metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

// instrument counts requests per route and status and logs completions.
func (s *Server) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)

		if s.metrics != nil {
			s.metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		}
		s.logger.Debug("request handled",
			"method", r.Method,
			"route", route,
			"status", rec.status,
		)
	}
}
