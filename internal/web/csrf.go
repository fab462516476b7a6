// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package web

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/samber/oops"
)

// CSRF protection uses the double-submit pattern: the token lives in a
// cookie and is repeated as a hidden field on every state-mutating form.
// A request is accepted only when both values are present and equal.
const (
	csrfCookieName = "gatehouse_csrf"
	csrfFieldName  = "csrf_token"
	csrfTokenBytes = 32
)

// csrfToken returns the request's CSRF token, issuing a new one and
// setting the cookie if the client doesn't have one yet.
func (s *Server) csrfToken(w http.ResponseWriter, r *http.Request) (string, error) {
	if cookie, err := r.Cookie(csrfCookieName); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	buf := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", oops.Code("CSRF_TOKEN_GENERATE_FAILED").Wrap(err)
	}
	token := hex.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return token, nil
}

// verifyCSRF checks the submitted form token against the cookie using a
// constant-time comparison. A missing or mismatched token is a
// request-level rejection, not a form validation error.
func verifyCSRF(r *http.Request) bool {
	cookie, err := r.Cookie(csrfCookieName)
	if err != nil || cookie.Value == "" {
		return false
	}
	submitted := r.PostFormValue(csrfFieldName)
	if submitted == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(submitted)) == 1
}
