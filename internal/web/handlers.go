// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package web

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/form"
	"github.com/gatehouse/gatehouse/pkg/errutil"
)

// flashCookieName carries a one-shot notice across a redirect.
const flashCookieName = "gatehouse_flash"

// registeredNotice deliberately reads the same whether the email was new
// or already taken, so registration can't be used to probe for accounts.
const registeredNotice = "Account created. Check your email for the confirmation link, then log in."

type loginPage struct {
	CSRFToken string
	Next      string
	Notice    string
	Alert     string
	Values    form.Values
	Errors    form.Errors
}

type registerPage struct {
	CSRFToken string
	Alert     string
	Values    form.Values
	Errors    form.Errors
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "index.html", struct{ SignedIn bool }{
		SignedIn: identityFrom(r.Context()) != nil,
	})
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	token, err := s.csrfToken(w, r)
	if err != nil {
		s.serverError(w, err)
		return
	}
	s.render(w, http.StatusOK, "login.html", loginPage{
		CSRFToken: token,
		Next:      safeNext(r.URL.Query().Get("next")),
		Notice:    s.popFlash(w, r),
		Values:    form.Values{},
		Errors:    form.Errors{},
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !verifyCSRF(r) {
		http.Error(w, "invalid CSRF token", http.StatusForbidden)
		return
	}

	values := formValues(r, "email", "password", "remember")
	next := safeNext(r.PostFormValue("next"))

	token, err := s.csrfToken(w, r)
	if err != nil {
		s.serverError(w, err)
		return
	}

	if errs := form.Login().Validate(values); errs.Has() {
		s.render(w, http.StatusUnprocessableEntity, "login.html", loginPage{
			CSRFToken: token,
			Next:      next,
			Values:    values,
			Errors:    errs,
		})
		return
	}

	remember := values.Bool("remember")
	session, sessionToken, err := s.auth.Login(r.Context(), values["email"], values["password"], remember)
	if err != nil {
		if auth.IsInvalidCredentials(err) {
			s.countLogin("failure")
			s.render(w, http.StatusUnprocessableEntity, "login.html", loginPage{
				CSRFToken: token,
				Next:      next,
				Alert:     "Email or password incorrect.",
				Values:    form.Values{"email": values["email"]},
				Errors:    form.Errors{},
			})
			return
		}
		s.countLogin("error")
		s.serverError(w, err)
		return
	}

	s.countLogin("success")
	s.setSessionCookie(w, sessionToken, session)
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	token, err := s.csrfToken(w, r)
	if err != nil {
		s.serverError(w, err)
		return
	}
	s.render(w, http.StatusOK, "register.html", registerPage{
		CSRFToken: token,
		Values:    form.Values{},
		Errors:    form.Errors{},
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if !verifyCSRF(r) {
		http.Error(w, "invalid CSRF token", http.StatusForbidden)
		return
	}

	values := formValues(r, "first_name", "surname", "email", "password", "password2")

	if errs := form.Registration().Validate(values); errs.Has() {
		token, err := s.csrfToken(w, r)
		if err != nil {
			s.serverError(w, err)
			return
		}
		// Passwords are never echoed back into the form.
		values["password"] = ""
		values["password2"] = ""
		s.render(w, http.StatusUnprocessableEntity, "register.html", registerPage{
			CSRFToken: token,
			Values:    values,
			Errors:    errs,
		})
		return
	}

	user, confirmToken, err := s.auth.Register(r.Context(),
		values["first_name"], values["surname"], values["email"], values["password"])
	switch {
	case err == nil:
		s.countRegistration("success")
		if confirmToken != "" {
			// Mail delivery is not wired up; the confirmation link is
			// logged so an operator can relay it.
			// TODO: send the confirmation link by email once an SMTP
			// relay is configured.
			s.logger.Info("confirmation link issued",
				"user_id", user.ID,
				"url", "/confirm?token="+url.QueryEscape(confirmToken),
			)
		}
	case auth.IsDuplicateEmail(err):
		// Indistinguishable from success on the outside.
		s.countRegistration("duplicate")
		s.logger.Info("registration with existing email")
	default:
		s.countRegistration("error")
		s.serverError(w, err)
		return
	}

	s.setFlash(w, registeredNotice)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	s.render(w, http.StatusOK, "dashboard.html", struct {
		FirstName      string
		EmailConfirmed bool
	}{
		FirstName:      id.user.FirstName,
		EmailConfirmed: id.user.EmailConfirmed,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if id := identityFrom(r.Context()); id != nil {
		if err := s.auth.Logout(r.Context(), id.session.ID); err != nil {
			// The cookie is cleared either way; a failed delete only
			// leaves a row for the pruner.
			errutil.LogError(s.logger, "logout failed", err)
		}
		s.clearSessionCookie(w)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	user, err := s.auth.ConfirmEmail(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		if auth.IsConfirmationInvalid(err) {
			s.render(w, http.StatusUnprocessableEntity, "confirm.html", struct {
				Confirmed bool
				FirstName string
				Alert     string
			}{
				Alert: "This confirmation link is invalid or has expired.",
			})
			return
		}
		s.serverError(w, err)
		return
	}

	s.render(w, http.StatusOK, "confirm.html", struct {
		Confirmed bool
		FirstName string
		Alert     string
	}{
		Confirmed: true,
		FirstName: user.FirstName,
	})
}

// serverError logs the failure and shows the generic error page. The
// page carries no detail; the log line does.
func (s *Server) serverError(w http.ResponseWriter, err error) {
	errutil.LogError(s.logger, "request failed", err)
	s.render(w, http.StatusInternalServerError, "error.html", nil)
}

// setSessionCookie installs the session token. A remembered session gets
// a persistent cookie matching the server-side expiry; otherwise the
// cookie dies with the browser while the server row lasts a day.
func (s *Server) setSessionCookie(w http.ResponseWriter, token string, session *auth.Session) {
	cookie := &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	if session.Remember {
		cookie.MaxAge = int(time.Until(session.ExpiresAt).Seconds())
	}
	http.SetCookie(w, cookie)
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// setFlash stores a one-shot notice for the next page load.
func (s *Server) setFlash(w http.ResponseWriter, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    url.QueryEscape(message),
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash reads and clears the flash notice, if any.
func (s *Server) popFlash(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
	message, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return ""
	}
	return message
}

// formValues extracts the named fields from a submission, trimming
// whitespace from everything except passwords.
func formValues(r *http.Request, names ...string) form.Values {
	values := make(form.Values, len(names))
	for _, name := range names {
		v := r.PostFormValue(name)
		if !strings.HasPrefix(name, "password") {
			v = strings.TrimSpace(v)
		}
		values[name] = v
	}
	return values
}

func (s *Server) countLogin(outcome string) {
	if s.metrics != nil {
		s.metrics.LoginsTotal.WithLabelValues(outcome).Inc()
	}
}

func (s *Server) countRegistration(outcome string) {
	if s.metrics != nil {
		s.metrics.RegistrationsTotal.WithLabelValues(outcome).Inc()
	}
}
