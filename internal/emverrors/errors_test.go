package emverrors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestKindOfUnwrapsWrappedError(t *testing.T) {
	base := Wrap(KindIO, "read_file", "a.txt", errors.New("disk full"))
	wrapped := fmt.Errorf("context: %w", base)

	if got := KindOf(wrapped); got != KindIO {
		t.Fatalf("KindOf(wrapped) = %v, want KindIO", got)
	}
	if KindOf(errors.New("plain")) != KindUnknown {
		t.Fatalf("KindOf(plain error) must be KindUnknown")
	}
}

func TestErrorIsComparesKindOnly(t *testing.T) {
	a := New(KindBadParent, "mkdir", "x")
	b := New(KindBadParent, "put", "y")
	c := New(KindIO, "mkdir", "x")

	if !errors.Is(a, b) {
		t.Fatalf("errors with the same Kind must compare equal via Is")
	}
	if errors.Is(a, c) {
		t.Fatalf("errors with different Kinds must not compare equal via Is")
	}
}

func TestErrorMessageIncludesOpArgAndCause(t *testing.T) {
	err := Wrap(KindNameClash, "mv", "dst/a.txt", errors.New("already exists"))
	msg := err.Error()
	for _, want := range []string{"mv", "NameClash", "dst/a.txt", "already exists"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, want it to contain %q", msg, want)
		}
	}
}
