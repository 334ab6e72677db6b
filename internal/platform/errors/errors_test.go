package errors

import (
	"errors"
	"fmt"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := New(CodeActionUnknown, "action not declared")
	wrapped := fmt.Errorf("process action: %w", err)

	if !errors.Is(wrapped, New(CodeActionUnknown, "other message")) {
		t.Fatal("expected errors.Is to match by code")
	}
	if errors.Is(wrapped, New(CodeNotFound, "record not found")) {
		t.Fatal("expected errors.Is to reject different code")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(CodeUnknown, "persist state", cause)

	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be traversable")
	}
	if err.Error() != "persist state" {
		t.Fatalf("message = %q, want %q", err.Error(), "persist state")
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(New(CodeSessionNotActive, "session is not active")); got != CodeSessionNotActive {
		t.Fatalf("code = %q, want %q", got, CodeSessionNotActive)
	}
	if got := GetCode(errors.New("plain")); got != CodeUnknown {
		t.Fatalf("code = %q, want %q", got, CodeUnknown)
	}
}

func TestGRPCCodeMapping(t *testing.T) {
	cases := []struct {
		code Code
		want codes.Code
	}{
		{CodeActionUnknown, codes.InvalidArgument},
		{CodeSessionNotActive, codes.FailedPrecondition},
		{CodeSessionStateTooLarge, codes.ResourceExhausted},
		{CodeAgentUnreachable, codes.Unavailable},
		{CodeNotFound, codes.NotFound},
		{CodeUnknown, codes.Internal},
	}
	for _, tc := range cases {
		if got := tc.code.GRPCCode(); got != tc.want {
			t.Fatalf("GRPCCode(%s) = %v, want %v", tc.code, got, tc.want)
		}
	}
}

func TestHandleErrorMasksUnknownErrors(t *testing.T) {
	st, ok := status.FromError(HandleError(errors.New("sql: database is locked")))
	if !ok {
		t.Fatal("expected gRPC status")
	}
	if st.Code() != codes.Internal {
		t.Fatalf("code = %v, want %v", st.Code(), codes.Internal)
	}
	if st.Message() != "an unexpected error occurred" {
		t.Fatalf("message = %q", st.Message())
	}
}

func TestHandleErrorKeepsDomainCode(t *testing.T) {
	st, ok := status.FromError(HandleError(New(CodeActionRoleDisallowed, "role may not act")))
	if !ok {
		t.Fatal("expected gRPC status")
	}
	if st.Code() != codes.FailedPrecondition {
		t.Fatalf("code = %v, want %v", st.Code(), codes.FailedPrecondition)
	}
}
