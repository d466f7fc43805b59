package headerattrs

import (
	"net/http"
	"net/textproto"

	"github.com/philiph/caddy-shib-claims/internal/core/domain"
)

// StripUntrusted removes from h every header a client could use to spoof a
// catalogued attribute, plus the session marker header. Deployments that
// trust a front-end agent to stamp attribute headers must strip the same
// names from the incoming request first, otherwise any client can appoint
// itself an identity.
//
// Returns the canonical names that were removed, for logging.
func StripUntrusted(h http.Header, catalog domain.AttributeCatalog, prefix, sessionHeader string) []string {
	if sessionHeader == "" {
		sessionHeader = DefaultSessionHeader
	}

	var stripped []string
	for _, d := range catalog.Dedupe() {
		key := textproto.CanonicalMIMEHeaderKey(prefix + d.ID)
		if _, ok := h[key]; ok {
			h.Del(key)
			stripped = append(stripped, key)
		}
	}

	key := textproto.CanonicalMIMEHeaderKey(sessionHeader)
	if _, ok := h[key]; ok {
		h.Del(key)
		stripped = append(stripped, key)
	}

	return stripped
}
