package version

import (
	"strings"
	"testing"
)

func TestVersionString(t *testing.T) {
	s := String()
	if s == "" {
		t.Fatalf("version string is empty")
	}
	if !strings.Contains(s, Version) {
		t.Fatalf("version string %q does not contain %q", s, Version)
	}
}
