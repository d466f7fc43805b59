package domain

import (
	"fmt"
	"strings"
)

// actionKind tags the three claim action shapes. The set is closed: new
// shapes require a new constructor and a new case in BuildIdentity.
type actionKind int

const (
	actionDirect actionKind = iota
	actionTransform
	actionExpand
)

// ClaimAction describes how one extracted attribute becomes one or more
// claims. Construct with MapClaim, TransformClaim, or ExpandClaim; the zero
// value is invalid. Actions are declared once at configuration time and are
// immutable thereafter.
type ClaimAction struct {
	// AttributeID is the extracted attribute this action consumes.
	AttributeID string

	// ClaimType is the claim type emitted for each produced value.
	ClaimType string

	kind      actionKind
	transform func(string) (string, error)
	expand    func(string) ([]string, error)
}

// MapClaim returns a direct-map action: the raw attribute value is copied
// verbatim into a single claim.
func MapClaim(attributeID, claimType string) ClaimAction {
	return ClaimAction{AttributeID: attributeID, ClaimType: claimType, kind: actionDirect}
}

// TransformClaim returns a single-value transform action: the raw value is
// passed through f and the result stored as one claim. f must be pure and
// must not consult external state; an error from f aborts claims building
// as an extraction failure.
func TransformClaim(attributeID, claimType string, f func(string) (string, error)) ClaimAction {
	return ClaimAction{AttributeID: attributeID, ClaimType: claimType, kind: actionTransform, transform: f}
}

// ExpandClaim returns a multi-value transform action: the raw value is
// passed through f and one claim is emitted per output element, preserving
// the order f produced. f must be pure; an error from f aborts claims
// building as an extraction failure.
func ExpandClaim(attributeID, claimType string, f func(string) ([]string, error)) ClaimAction {
	return ClaimAction{AttributeID: attributeID, ClaimType: claimType, kind: actionExpand, expand: f}
}

// Validate checks that the action was built by a constructor and carries
// the function its shape requires.
func (a ClaimAction) Validate() error {
	if a.AttributeID == "" {
		return ConfigError("claim action: attribute id is required")
	}
	if a.ClaimType == "" {
		return ConfigError("claim action: claim type is required")
	}
	switch a.kind {
	case actionDirect:
		return nil
	case actionTransform:
		if a.transform == nil {
			return ConfigError("claim action: transform function is required")
		}
	case actionExpand:
		if a.expand == nil {
			return ConfigError("claim action: expand function is required")
		}
	}
	return nil
}

// ClaimActions is the ordered rule list driving claims building. Like the
// attribute catalog it is constructed once, never mutated, and shared
// read-only across concurrent requests.
type ClaimActions []ClaimAction

// Validate checks every action in the list.
func (as ClaimActions) Validate() error {
	for _, a := range as {
		if err := a.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// AttributeIDs returns the distinct attribute IDs the actions consume, in
// first-reference order. Useful for composing a catalog that covers a rule
// set.
func (as ClaimActions) AttributeIDs() []string {
	seen := make(map[string]bool, len(as))
	var ids []string
	for _, a := range as {
		if !seen[a.AttributeID] {
			seen[a.AttributeID] = true
			ids = append(ids, a.AttributeID)
		}
	}
	return ids
}

// DefaultClaimActions returns the default attribute-to-claim rules matching
// DefaultAttributeCatalog. Identifier-style attributes are lowercased on
// the way in; group membership is split on the Shibboleth ";" delimiter.
// Deployments with case-sensitive identifiers should replace the uid/mail
// rules with direct maps.
func DefaultClaimActions() ClaimActions {
	return ClaimActions{
		MapClaim("givenName", ClaimFirstName),
		MapClaim("sn", ClaimLastName),
		MapClaim("wiscEduPVI", ClaimPVI),
		MapClaim("eppn", ClaimEPPN),
		TransformClaim("uid", ClaimUID, LowercaseValue),
		TransformClaim("mail", ClaimEmail, LowercaseValue),
		ExpandClaim("isMemberOf", ClaimGroup, SplitValues(";")),
	}
}

// LowercaseValue lowercases an attribute value. It never fails.
//
// This is a pure function with no side effects or I/O.
func LowercaseValue(v string) (string, error) {
	return strings.ToLower(v), nil
}

// UppercaseValue uppercases an attribute value. It never fails.
//
// This is a pure function with no side effects or I/O.
func UppercaseValue(v string) (string, error) {
	return strings.ToUpper(v), nil
}

// TrimValue removes leading and trailing whitespace. It never fails.
//
// This is a pure function with no side effects or I/O.
func TrimValue(v string) (string, error) {
	return strings.TrimSpace(v), nil
}

// SplitValues returns a multi-value transform that splits on sep, trims
// each token, and drops empty tokens. Token order is preserved. An empty
// sep falls back to the Shibboleth ";" convention.
func SplitValues(sep string) func(string) ([]string, error) {
	if sep == "" {
		sep = ";"
	}
	return func(v string) ([]string, error) {
		parts := strings.Split(v, sep)
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
		return out, nil
	}
}

// Transform names accepted by CompileRule. These are the spellings used in
// rules files and Caddyfile claim directives.
const (
	TransformNone      = "none"
	TransformLowercase = "lowercase"
	TransformUppercase = "uppercase"
	TransformTrim      = "trim"
	TransformSplit     = "split"
)

// CompileRule builds a ClaimAction from a declarative rule description.
// transform selects the action shape: "" or "none" compiles to a direct
// map, "lowercase"/"uppercase"/"trim" to single-value transforms, and
// "split" to a multi-value transform using separator (";" when empty).
// separator is only meaningful for "split".
//
// This is a pure function with no side effects or I/O.
func CompileRule(attributeID, claimType, transform, separator string) (ClaimAction, error) {
	if attributeID == "" {
		return ClaimAction{}, ConfigError("claim rule: attribute is required")
	}
	if claimType == "" {
		return ClaimAction{}, ConfigError("claim rule: claim is required")
	}
	if separator != "" && transform != TransformSplit {
		return ClaimAction{}, ConfigError("claim rule: separator is only valid with the split transform")
	}

	switch transform {
	case "", TransformNone:
		return MapClaim(attributeID, claimType), nil
	case TransformLowercase:
		return TransformClaim(attributeID, claimType, LowercaseValue), nil
	case TransformUppercase:
		return TransformClaim(attributeID, claimType, UppercaseValue), nil
	case TransformTrim:
		return TransformClaim(attributeID, claimType, TrimValue), nil
	case TransformSplit:
		return ExpandClaim(attributeID, claimType, SplitValues(separator)), nil
	default:
		return ClaimAction{}, ConfigError(fmt.Sprintf("claim rule: unknown transform %q", transform))
	}
}
