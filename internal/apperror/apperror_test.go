package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindStatusCode(t *testing.T) {
	cases := []struct {
		kind Kind
		want int
	}{
		{KindValidation, http.StatusBadRequest},
		{KindNotFound, http.StatusNotFound},
		{KindInvalidCredential, http.StatusUnauthorized},
		{KindInvalidToken, http.StatusUnauthorized},
		{KindExpired, http.StatusUnauthorized},
		{KindConflict, http.StatusConflict},
		{KindForbidden, http.StatusForbidden},
		{KindInternal, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		if got := tc.kind.StatusCode(); got != tc.want {
			t.Fatalf("%s: expected status %d got %d", tc.kind, tc.want, got)
		}
	}
}

func TestKindOfWrappedError(t *testing.T) {
	sentinel := New(KindNotFound, "user not found")
	wrapped := fmt.Errorf("load channel: %w", sentinel)

	if KindOf(wrapped) != KindNotFound {
		t.Fatalf("expected not found kind, got %s", KindOf(wrapped))
	}
	if !errors.Is(wrapped, sentinel) {
		t.Fatal("expected errors.Is to match the sentinel")
	}
	if KindOf(errors.New("boom")) != KindInternal {
		t.Fatal("expected unclassified errors to be internal")
	}
}

func TestAsClassifiesUnknownErrors(t *testing.T) {
	cause := errors.New("connection reset")
	appErr := As(cause)
	if appErr.Kind != KindInternal {
		t.Fatalf("expected internal kind, got %s", appErr.Kind)
	}
	if !errors.Is(appErr, cause) {
		t.Fatal("expected the cause to stay reachable")
	}
}
