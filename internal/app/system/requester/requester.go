// Package requester resolves the username on whose behalf a request is
// made. Authentication itself lives in the fronting layer (which is trusted
// to have verified the user); this service only consumes the username it
// forwards, as the membership key for group access checks.
package requester

import (
	"net/http"
	"strings"
)

// Header carries the authenticated username, set by the fronting layer.
const Header = "X-Requester"

// FromRequest returns the requesting username and whether one was supplied.
func FromRequest(r *http.Request) (string, bool) {
	username := strings.TrimSpace(r.Header.Get(Header))
	return username, username != ""
}

// WithUser returns a copy of the request carrying the given requesting
// username. Test helper mirror of what the fronting layer does.
func WithUser(r *http.Request, username string) *http.Request {
	r.Header.Set(Header, username)
	return r
}
