package ports

import "net/http"

// SessionDetector reports whether the front-end SSO agent established a
// session for this request. A negative answer is not a failure; it means
// another authentication method may handle the request. Implementations
// must be safe for concurrent use and must not block.
type SessionDetector interface {
	SessionPresent(r *http.Request) bool
}
