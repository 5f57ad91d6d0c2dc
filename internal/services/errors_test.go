package services

import (
	"errors"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("connection reset")
	err := Wrap(ErrTransient, "download", "fetch asset", "stream interrupted", base)

	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected wrapped error to match ErrTransient, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to preserve the cause, got %v", err)
	}
}

func TestWrapNilMarkerDefaultsToTransient(t *testing.T) {
	err := Wrap(nil, "probe", "inspect", "", nil)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected nil marker to default to ErrTransient, got %v", err)
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"transient", Wrap(ErrTransient, "s", "op", "", nil), true},
		{"timeout", Wrap(ErrTimeout, "s", "op", "", nil), true},
		{"permanent", Wrap(ErrPermanent, "s", "op", "", nil), false},
		{"external tool", Wrap(ErrExternalTool, "s", "op", "", nil), false},
		{"configuration", Wrap(ErrConfiguration, "s", "op", "", nil), false},
		{"unmarked", errors.New("socket closed"), true},
		{"nil", nil, false},
	}

	for _, tc := range cases {
		if got := Retryable(tc.err); got != tc.want {
			t.Errorf("%s: Retryable = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestFatal(t *testing.T) {
	if !Fatal(Wrap(ErrConfiguration, "transcribe", "init", "api key required", nil)) {
		t.Error("configuration errors should be fatal")
	}
	if Fatal(Wrap(ErrPermanent, "transcribe", "submit", "", nil)) {
		t.Error("permanent unit failures should not abort the stage")
	}
}
