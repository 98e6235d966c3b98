package harness_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/torosent/crankbench/internal/harness"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want harness.Kind
	}{
		{"nil", nil, harness.KindNone},
		{"plain", errors.New("x"), harness.KindWorkload},
		{"workload", &harness.WorkloadError{Worker: "w:0", Run: 1, Err: errInjected}, harness.KindWorkload},
		{"fatal", &harness.FatalError{Worker: "w:0", Run: 1, Value: "boom"}, harness.KindFatal},
		{"wrapped fatal", fmt.Errorf("outer: %w", &harness.FatalError{Value: "boom"}), harness.KindFatal},
		{"harness", &harness.HarnessError{Phase: harness.PhaseCompletion, Err: harness.ErrIncompleteRun}, harness.KindHarness},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := harness.KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKindString(t *testing.T) {
	want := map[harness.Kind]string{
		harness.KindNone:     "none",
		harness.KindWorkload: "workload",
		harness.KindFatal:    "fatal",
		harness.KindHarness:  "harness",
		harness.Kind(42):     "kind(42)",
	}
	for kind, s := range want {
		if kind.String() != s {
			t.Errorf("Kind(%d).String() = %q, want %q", int(kind), kind.String(), s)
		}
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&harness.WorkloadError{Worker: "noop:1", Run: 7, Err: errInjected}, "worker noop:1 run 7: injected failure"},
		{&harness.WorkloadError{Worker: "noop:1", Err: errInjected}, "worker noop:1: injected failure"},
		{&harness.FatalError{Worker: "noop:0", Run: 2, Value: "boom"}, "worker noop:0 run 2 panicked: boom"},
		{&harness.HarnessError{Phase: harness.PhaseStart, Err: errInjected}, "harness start: injected failure"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestFatalErrorUnwrap(t *testing.T) {
	if err := (&harness.FatalError{Value: "boom"}).Unwrap(); err != nil {
		t.Errorf("Unwrap() of non-error panic = %v, want nil", err)
	}
	if !errors.Is(&harness.FatalError{Value: errInjected}, errInjected) {
		t.Error("errors.Is did not reach the panic value")
	}
}
