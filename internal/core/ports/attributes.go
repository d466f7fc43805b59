package ports

import "net/http"

// AttributeSource is a read-only, request-scoped view of the attributes the
// front-end SSO agent attached to a request. Lookup is by exact attribute
// ID as declared in the catalog; how that ID maps onto the physical carrier
// (header name, CGI variable) is the adapter's business, and the adapter
// documents its own case-sensitivity rules.
type AttributeSource interface {
	// Lookup returns the raw value for an attribute ID and whether the
	// attribute is present in this request at all.
	Lookup(name string) (string, bool)

	// Names returns the attribute identifiers present in this request, for
	// diagnostics. Order is unspecified.
	Names() []string
}

// SourceFactory bridges an incoming request to its AttributeSource. One
// factory is built per deployment (headers in one, CGI variables in
// another); the claim mapping engine is identical regardless of which is
// supplied. Implementations must be safe for concurrent use.
type SourceFactory interface {
	AttributesForRequest(r *http.Request) AttributeSource
}
