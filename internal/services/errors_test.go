package services

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapPreservesMarker(t *testing.T) {
	underlying := errors.New("exit status 1")
	err := Wrap(ErrEncode, "encode", "high", "ffmpeg failed", underlying)

	if !errors.Is(err, ErrEncode) {
		t.Fatal("expected ErrEncode marker")
	}
	if !errors.Is(err, underlying) {
		t.Fatal("expected underlying error to survive wrapping")
	}
	want := "encode error: encode: high: ffmpeg failed: exit status 1"
	if err.Error() != want {
		t.Fatalf("unexpected message %q, want %q", err.Error(), want)
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := Wrap(nil, "probe", "", "", nil)
	if !errors.Is(err, ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool fallback, got %v", err)
	}
}

func TestWrapOmitsEmptyParts(t *testing.T) {
	err := Wrap(ErrProbe, "", "", "", fmt.Errorf("boom"))
	want := "probe error: service failure: boom"
	if err.Error() != want {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
