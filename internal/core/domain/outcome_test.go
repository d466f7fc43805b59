//go:build unit

package domain

import (
	"errors"
	"testing"
)

// =============================================================================
// Result construction
// =============================================================================

func TestResultStatus_String(t *testing.T) {
	testCases := []struct {
		status ResultStatus
		want   string
	}{
		{StatusNoResult, "no_result"},
		{StatusSuccess, "success"},
		{StatusFailed, "failed"},
		{ResultStatus(99), "unknown"},
	}

	for _, tc := range testCases {
		if got := tc.status.String(); got != tc.want {
			t.Errorf("String(%d) = %q, want %q", tc.status, got, tc.want)
		}
	}
}

func TestResultConstructors(t *testing.T) {
	if r := NoResult(); r.Status != StatusNoResult || r.Identity != nil || r.Err != nil {
		t.Errorf("NoResult() = %+v", r)
	}

	id := &Identity{Issuer: "Shibboleth"}
	if r := Succeed(id); r.Status != StatusSuccess || r.Identity != id || r.Err != nil {
		t.Errorf("Succeed() = %+v", r)
	}

	err := errors.New("boom")
	if r := Fail(err); r.Status != StatusFailed || r.Err != err {
		t.Errorf("Fail() = %+v", r)
	}
}

// TestResult_WithProperty verifies value semantics: the original result is
// never mutated.
func TestResult_WithProperty(t *testing.T) {
	base := NoResult()

	redirect := base.WithProperty("redirect", "/login")
	if base.Properties != nil {
		t.Errorf("original result gained properties: %+v", base.Properties)
	}
	if redirect.Properties["redirect"] != "/login" {
		t.Errorf("Properties = %+v, want redirect=/login", redirect.Properties)
	}

	second := redirect.WithProperty("reason", "expired")
	if len(redirect.Properties) != 1 {
		t.Errorf("first copy gained properties: %+v", redirect.Properties)
	}
	if second.Properties["redirect"] != "/login" || second.Properties["reason"] != "expired" {
		t.Errorf("Properties = %+v, want both keys", second.Properties)
	}
}

// =============================================================================
// FailureContext
// =============================================================================

func TestFailureContext_Override(t *testing.T) {
	cause := errors.New("transform blew up")
	fc := NewFailureContext(cause)

	if fc.Err != cause {
		t.Errorf("Err = %v, want %v", fc.Err, cause)
	}
	if _, ok := fc.Override(); ok {
		t.Error("Override() reported a result before SetResult")
	}

	fc.SetResult(NoResult())
	if r, ok := fc.Override(); !ok || r.Status != StatusNoResult {
		t.Errorf("Override() = (%+v, %v), want NoResult", r, ok)
	}

	// Last call wins.
	fc.SetResult(Fail(cause).WithProperty("redirect", "/error"))
	r, ok := fc.Override()
	if !ok || r.Status != StatusFailed || r.Properties["redirect"] != "/error" {
		t.Errorf("Override() after second SetResult = (%+v, %v)", r, ok)
	}
}
