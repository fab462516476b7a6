// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package web

import (
	"net/url"
	"strings"
)

// defaultAfterLogin is where a successful login lands when no usable
// next target was requested.
const defaultAfterLogin = "/dashboard"

// safeNext resolves a requested post-login redirect target. Only
// same-origin relative paths are honored; absolute URLs, scheme-relative
// URLs ("//evil.example"), and anything else that could leave the origin
// fall back to the default landing page.
func safeNext(next string) string {
	if next == "" {
		return defaultAfterLogin
	}
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return defaultAfterLogin
	}
	// Backslashes are treated as slashes by some browsers.
	if strings.HasPrefix(next, "/\\") {
		return defaultAfterLogin
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return defaultAfterLogin
	}
	return next
}
