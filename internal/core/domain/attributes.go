package domain

import "strings"

// AttributeDescriptor identifies one attribute the claim mapping engine wants
// from the SSO agent. Identity is the ID; descriptors are immutable once
// registered in a catalog.
type AttributeDescriptor struct {
	// ID is the stable attribute identifier as published by the agent,
	// e.g. "mail", "eppn", "isMemberOf".
	ID string `json:"id"`

	// DisplayName is an optional human-readable name for logs and
	// diagnostics. Empty means the ID is used.
	DisplayName string `json:"display_name,omitempty"`
}

// Label returns the display name, falling back to the ID.
func (d AttributeDescriptor) Label() string {
	if d.DisplayName != "" {
		return d.DisplayName
	}
	return d.ID
}

// AttributeCatalog is an ordered list of attribute descriptors. Catalogs are
// built once at configuration time and shared read-only across requests.
// Duplicate IDs are legal in a stored catalog (catalogs may be composed from
// several sources); consumers dedupe with first occurrence winning.
type AttributeCatalog []AttributeDescriptor

// Dedupe returns a copy of the catalog with duplicate IDs removed, keeping
// the first occurrence of each ID and preserving the original order.
//
// This is a pure function with no side effects or I/O.
func (c AttributeCatalog) Dedupe() AttributeCatalog {
	if len(c) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(c))
	out := make(AttributeCatalog, 0, len(c))
	for _, d := range c {
		if seen[d.ID] {
			continue
		}
		seen[d.ID] = true
		out = append(out, d)
	}
	return out
}

// Contains reports whether the catalog has a descriptor with the given ID.
func (c AttributeCatalog) Contains(id string) bool {
	for _, d := range c {
		if d.ID == id {
			return true
		}
	}
	return false
}

// IDs returns the attribute IDs of the deduplicated catalog, in order.
func (c AttributeCatalog) IDs() []string {
	deduped := c.Dedupe()
	ids := make([]string, len(deduped))
	for i, d := range deduped {
		ids[i] = d.ID
	}
	return ids
}

// MergeCatalogs concatenates catalogs in argument order and dedupes the
// result. Descriptors from earlier catalogs win over later duplicates.
//
// This is a pure function with no side effects or I/O.
func MergeCatalogs(catalogs ...AttributeCatalog) AttributeCatalog {
	var merged AttributeCatalog
	for _, c := range catalogs {
		merged = append(merged, c...)
	}
	return merged.Dedupe()
}

// DefaultAttributeCatalog returns the attributes commonly released by a
// Shibboleth identity provider. Deployments override or extend this via
// configuration; it is a starting point, not a contract.
func DefaultAttributeCatalog() AttributeCatalog {
	return AttributeCatalog{
		{ID: "givenName", DisplayName: "Given Name"},
		{ID: "sn", DisplayName: "Surname"},
		{ID: "wiscEduPVI", DisplayName: "Publicly Visible Identifier"},
		{ID: "eppn", DisplayName: "EduPerson Principal Name"},
		{ID: "uid", DisplayName: "User ID"},
		{ID: "mail", DisplayName: "Email Address"},
		{ID: "isMemberOf", DisplayName: "Group Memberships"},
	}
}

// AttributeValues holds the wanted, present attributes of a single request.
// One raw string value per attribute ID; multi-valued attributes arrive as a
// single delimiter-joined string (Shibboleth joins with ";") and are split
// later by a claim action. Values are owned exclusively by the request that
// extracted them and must not be shared or retained.
type AttributeValues map[string]string

// AttributeGetter is the minimal lookup the extractor needs: a read-only,
// request-scoped view of how attributes physically arrived. The second
// return value reports presence, so an attribute absent from this session
// is distinguishable from an empty value.
type AttributeGetter interface {
	Lookup(name string) (string, bool)
}

// ExtractAttributes returns the catalogued attributes that are present in
// src. The catalog is deduplicated first (first occurrence wins), each
// surviving ID is looked up once, and absent attributes are skipped without
// error: an attribute missing from this particular session is not a failure.
//
// Guarantees: the result never contains an ID absent from src, never
// contains duplicate IDs, and iteration happens in catalog order.
//
// This is a pure function with no side effects or I/O.
func ExtractAttributes(src AttributeGetter, catalog AttributeCatalog) AttributeValues {
	values := make(AttributeValues)
	for _, d := range catalog.Dedupe() {
		if v, ok := src.Lookup(d.ID); ok {
			values[d.ID] = v
		}
	}
	return values
}

// oidRegistry maps attribute OIDs to their friendly names and vice versa,
// covering the attributes this module handles by default.
var oidRegistry = map[string]string{
	// eduPerson attributes
	"urn:oid:1.3.6.1.4.1.5923.1.1.1.6": "eppn",
	"eppn":                             "urn:oid:1.3.6.1.4.1.5923.1.1.1.6",
	"urn:oid:1.3.6.1.4.1.5923.1.5.1.1": "isMemberOf",
	"isMemberOf":                       "urn:oid:1.3.6.1.4.1.5923.1.5.1.1",

	// Standard LDAP attributes
	"urn:oid:0.9.2342.19200300.100.1.3": "mail",
	"mail":                              "urn:oid:0.9.2342.19200300.100.1.3",
	"urn:oid:0.9.2342.19200300.100.1.1": "uid",
	"uid":                               "urn:oid:0.9.2342.19200300.100.1.1",
	"urn:oid:2.5.4.42":                  "givenName",
	"givenName":                         "urn:oid:2.5.4.42",
	"urn:oid:2.5.4.4":                   "sn",
	"sn":                                "urn:oid:2.5.4.4",
}

// ResolveAttributeName resolves an attribute name to both its OID and
// friendly name. If the input is a known OID, returns the OID and its
// friendly name. If the input is a known friendly name, returns the OID and
// friendly name. If the input is unknown, returns it unchanged for both.
//
// This is a pure function with no side effects or I/O.
func ResolveAttributeName(name string) (oid, friendlyName string) {
	if name == "" {
		return "", ""
	}

	if resolved, ok := oidRegistry[name]; ok {
		if strings.HasPrefix(name, "urn:oid:") {
			return name, resolved
		}
		return resolved, name
	}

	return name, name
}
