package transport

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestKindString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind Kind
		want string
	}{
		{NotOpen, "not open"},
		{TimedOut, "timed out"},
		{EndOfFile, "end of file"},
		{Unknown, "unknown"},
		{Kind(42), "unknown"},
	}

	for _, tc := range tests {
		if got := tc.kind.String(); got != tc.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tc.kind, got, tc.want)
		}
	}
}

func TestErrorMessage(t *testing.T) {
	t.Parallel()

	e := newError(NotOpen, "could not connect to tcp:localhost:9090")
	if !strings.Contains(e.Error(), "localhost:9090") {
		t.Errorf("Error() = %q, want endpoint in message", e.Error())
	}
	if !strings.Contains(e.Error(), "not open") {
		t.Errorf("Error() = %q, want kind in message", e.Error())
	}

	cause := fmt.Errorf("connection refused")
	we := wrapError(NotOpen, "could not connect", cause)
	if !errors.Is(we, cause) {
		t.Error("wrapped error should unwrap to its cause")
	}
	if !strings.Contains(we.Error(), "connection refused") {
		t.Errorf("Error() = %q, want cause in message", we.Error())
	}
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	if got := KindOf(newError(TimedOut, "x")); got != TimedOut {
		t.Errorf("KindOf() = %v, want TimedOut", got)
	}

	wrapped := fmt.Errorf("outer: %w", newError(EndOfFile, "x"))
	if got := KindOf(wrapped); got != EndOfFile {
		t.Errorf("KindOf(wrapped) = %v, want EndOfFile", got)
	}

	if got := KindOf(fmt.Errorf("plain")); got != Unknown {
		t.Errorf("KindOf(plain) = %v, want Unknown", got)
	}
}

func TestIsKind(t *testing.T) {
	t.Parallel()

	err := newError(EndOfFile, "read 0 bytes")
	if !IsKind(err, EndOfFile) {
		t.Error("IsKind() = false for matching kind")
	}
	if IsKind(err, TimedOut) {
		t.Error("IsKind() = true for non-matching kind")
	}
	if IsKind(fmt.Errorf("plain"), Unknown) {
		t.Error("IsKind() = true for non-transport error")
	}
}

func TestTimeout(t *testing.T) {
	t.Parallel()

	if !newError(TimedOut, "x").Timeout() {
		t.Error("TimedOut error should report Timeout() = true")
	}
	if newError(EndOfFile, "x").Timeout() {
		t.Error("EndOfFile error should report Timeout() = false")
	}
}
