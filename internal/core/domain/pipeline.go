package domain

// Pipeline is the claim mapping engine bound to one configuration: an
// attribute catalog, an ordered list of claim actions, an issuer label, and
// the outcome hooks. It is built once at configuration time, never mutated,
// and safe to share across concurrent requests; everything it produces is
// owned by the request that asked.
type Pipeline struct {
	catalog AttributeCatalog
	actions ClaimActions
	issuer  string
	hooks   Hooks
}

// NewPipeline validates the actions and returns a pipeline. The catalog is
// deduplicated once here (first occurrence wins) so per-request extraction
// does not repeat the work.
func NewPipeline(catalog AttributeCatalog, actions ClaimActions, issuer string, hooks Hooks) (*Pipeline, error) {
	if issuer == "" {
		return nil, ConfigMissingError("pipeline: issuer is required")
	}
	if err := actions.Validate(); err != nil {
		return nil, err
	}
	return &Pipeline{
		catalog: catalog.Dedupe(),
		actions: actions,
		issuer:  issuer,
		hooks:   hooks,
	}, nil
}

// Catalog returns a copy of the deduplicated catalog. Callers may reorder or
// extend the copy without affecting the pipeline.
func (p *Pipeline) Catalog() AttributeCatalog {
	out := make(AttributeCatalog, len(p.catalog))
	copy(out, p.catalog)
	return out
}

// Issuer returns the issuer label stamped on produced identities.
func (p *Pipeline) Issuer() string {
	return p.issuer
}

// Extract returns the catalogued attributes present in src. A nil src reads
// as a request carrying no attributes.
func (p *Pipeline) Extract(src AttributeGetter) AttributeValues {
	if src == nil {
		return make(AttributeValues)
	}
	return ExtractAttributes(src, p.catalog)
}

// Principal runs extraction and claims building and returns the identity.
// This is the reusable half of the pipeline: no session check, no hooks, no
// result wrapping. Calling it twice with the same source yields identical
// identities in identical order.
func (p *Pipeline) Principal(src AttributeGetter) (*Identity, error) {
	return BuildIdentity(p.Extract(src), p.actions, p.issuer)
}

// Authenticate runs the outcome state machine for one request.
//
// sessionPresent is the host's session predicate, already evaluated: when
// false the outcome is NoResult and src is never consulted, signalling "not
// my concern" so a composed pipeline may try another authentication method.
// When true, extraction and claims building run; on success the identity is
// handed to the OnAuthenticated hook and returned in a success result. On
// failure the OnFailure hook may acknowledge the error by setting an
// override result, which becomes the outcome with a nil error; an
// unacknowledged error is returned unchanged to the caller, which is
// intentionally fatal for this attempt. Silently downgrading an unexplained
// failure to "no identity" would be a security-relevant misbehavior.
func (p *Pipeline) Authenticate(sessionPresent bool, src AttributeGetter) (Result, error) {
	if !sessionPresent {
		return NoResult(), nil
	}

	id, err := p.Principal(src)
	if err != nil {
		fc := NewFailureContext(err)
		if p.hooks.OnFailure != nil {
			p.hooks.OnFailure(fc)
		}
		if override, ok := fc.Override(); ok {
			override.Overridden = true
			return override, nil
		}
		return Result{}, err
	}

	if p.hooks.OnAuthenticated != nil {
		p.hooks.OnAuthenticated(id)
	}
	return Succeed(id), nil
}
