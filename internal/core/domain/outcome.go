package domain

// ResultStatus enumerates the terminal states of an authentication attempt.
type ResultStatus int

const (
	// StatusNoResult means no front-end session was present: not a failure,
	// just "not my concern", leaving a composed pipeline free to try another
	// authentication method.
	StatusNoResult ResultStatus = iota

	// StatusSuccess means an identity was produced.
	StatusSuccess

	// StatusFailed means extraction or claims building failed and a failure
	// hook chose to surface the failure as a result value.
	StatusFailed
)

// String returns the status name for logs and metrics labels.
func (s ResultStatus) String() string {
	switch s {
	case StatusNoResult:
		return "no_result"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the outcome of one authentication attempt. Produced once per
// request and never mutated after creation.
type Result struct {
	Status ResultStatus

	// Identity is set when Status is StatusSuccess.
	Identity *Identity

	// Err is set when Status is StatusFailed.
	Err error

	// Overridden reports that a failure hook replaced the original error
	// with this result. True for any override, whatever its Status, so
	// callers can distinguish a downgraded failure from the genuine
	// no-session or success outcome.
	Overridden bool

	// Properties carries request-scoped values that are opaque to the core.
	// Handlers use them to shape the HTTP response, e.g. a redirect target
	// attached by a failure hook.
	Properties map[string]string
}

// NoResult returns the "decline to handle" outcome.
func NoResult() Result {
	return Result{Status: StatusNoResult}
}

// Succeed returns a successful outcome carrying the identity.
func Succeed(id *Identity) Result {
	return Result{Status: StatusSuccess, Identity: id}
}

// Fail returns a failed outcome carrying the error. Used by failure hooks
// that want to acknowledge a failure while replacing how it is surfaced.
func Fail(err error) Result {
	return Result{Status: StatusFailed, Err: err}
}

// WithProperty returns a copy of the result with one property set. The
// original is not modified.
func (r Result) WithProperty(key, value string) Result {
	props := make(map[string]string, len(r.Properties)+1)
	for k, v := range r.Properties {
		props[k] = v
	}
	props[key] = value
	r.Properties = props
	return r
}

// FailureContext is handed to the failure hook when extraction or claims
// building fails. The hook may acknowledge the failure by setting an
// override result; if it does not, the original error propagates to the
// caller unchanged.
type FailureContext struct {
	// Err is the error that aborted the attempt.
	Err error

	override    Result
	hasOverride bool
}

// NewFailureContext wraps the triggering error.
func NewFailureContext(err error) *FailureContext {
	return &FailureContext{Err: err}
}

// SetResult records an override outcome. The override may be any result:
// NoResult to downgrade to "treat as anonymous", or a failed result with a
// redirect property, for example. The last call wins.
func (c *FailureContext) SetResult(r Result) {
	c.override = r
	c.hasOverride = true
}

// Override returns the override result, if one was set.
func (c *FailureContext) Override() (Result, bool) {
	return c.override, c.hasOverride
}

// Hooks are the synchronous callbacks of the outcome state machine, bound
// at construction time. Nil fields are simply not invoked; there is no
// ambient event bus.
type Hooks struct {
	// OnAuthenticated fires after an identity is produced, before the
	// success result is returned.
	OnAuthenticated func(*Identity)

	// OnFailure fires when extraction or claims building fails. It may set
	// an override result on the context; otherwise the original error is
	// returned to the caller. Intentionally the only recovery point: an
	// unacknowledged failure must not be silently swallowed.
	OnFailure func(*FailureContext)
}
