package domain

// Claim types emitted by the default rules. Claim types are plain strings;
// deployments may emit any type they like through custom rules.
const (
	ClaimFirstName = "FIRSTNAME"
	ClaimLastName  = "LASTNAME"
	ClaimPVI       = "PVI"
	ClaimEPPN      = "EPPN"
	ClaimUID       = "UID"
	ClaimEmail     = "EMAIL"
	ClaimGroup     = "GROUP"
)

// DefaultIssuer is the issuer label stamped on identities when the
// deployment does not configure its own.
const DefaultIssuer = "Shibboleth"

// Claim is one typed value of an identity. Multiple claims of the same type
// are legal (group memberships, for example).
type Claim struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Identity is the normalized identity record produced by claims building:
// an ordered list of claims plus the issuer label of the mapping pipeline
// that produced them. Identities are created fresh per request, never
// shared, and never mutated after BuildIdentity returns.
type Identity struct {
	// Issuer labels where the claims came from, e.g. "Shibboleth".
	Issuer string `json:"issuer"`

	// Claims in action-then-emission order.
	Claims []Claim `json:"claims"`
}

// Value returns the first claim value of the given type.
func (id *Identity) Value(claimType string) (string, bool) {
	for _, c := range id.Claims {
		if c.Type == claimType {
			return c.Value, true
		}
	}
	return "", false
}

// Values returns all claim values of the given type, in emission order.
func (id *Identity) Values(claimType string) []string {
	var out []string
	for _, c := range id.Claims {
		if c.Type == claimType {
			out = append(out, c.Value)
		}
	}
	return out
}

// HasClaim reports whether at least one claim of the given type exists.
func (id *Identity) HasClaim(claimType string) bool {
	_, ok := id.Value(claimType)
	return ok
}

// Name returns a loggable identifier for the subject: the first EPPN claim,
// else the first UID claim, else empty. Never used for authorization.
func (id *Identity) Name() string {
	if v, ok := id.Value(ClaimEPPN); ok {
		return v
	}
	if v, ok := id.Value(ClaimUID); ok {
		return v
	}
	return ""
}

// BuildIdentity applies actions to the extracted attribute values, in
// registration order, and assembles the resulting claims under the given
// issuer label.
//
// An action whose attribute is absent from attrs is skipped silently: a
// missing attribute produces no claim and no error. The same attribute may
// feed any number of actions; each fires independently. A transform error
// aborts the build and surfaces as an extraction failure carrying the
// attribute ID and claim type of the action that raised it.
//
// This is a pure function with no side effects or I/O. Given equal inputs
// it returns identical identities, claims in identical order.
func BuildIdentity(attrs AttributeValues, actions ClaimActions, issuer string) (*Identity, error) {
	id := &Identity{Issuer: issuer}

	for _, a := range actions {
		raw, ok := attrs[a.AttributeID]
		if !ok {
			continue
		}

		switch a.kind {
		case actionDirect:
			id.Claims = append(id.Claims, Claim{Type: a.ClaimType, Value: raw})

		case actionTransform:
			if a.transform == nil {
				return nil, ConfigError("claim action: transform function is required")
			}
			v, err := a.transform(raw)
			if err != nil {
				return nil, ExtractionError(a.AttributeID, a.ClaimType, err)
			}
			id.Claims = append(id.Claims, Claim{Type: a.ClaimType, Value: v})

		case actionExpand:
			if a.expand == nil {
				return nil, ConfigError("claim action: expand function is required")
			}
			parts, err := a.expand(raw)
			if err != nil {
				return nil, ExtractionError(a.AttributeID, a.ClaimType, err)
			}
			for _, p := range parts {
				id.Claims = append(id.Claims, Claim{Type: a.ClaimType, Value: p})
			}
		}
	}

	return id, nil
}
