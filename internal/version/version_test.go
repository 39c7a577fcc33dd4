package version

import "testing"

func TestString(t *testing.T) {
	origVersion, origSHA := Version, GitSHA
	defer func() { Version, GitSHA = origVersion, origSHA }()

	Version, GitSHA = "1.2.0", "ab12cd34ef56"
	if got := String(); got != "1.2.0+ab12cd3" {
		t.Errorf("String() = %q, want %q", got, "1.2.0+ab12cd3")
	}

	Version, GitSHA = "dev", "unknown"
	if got := String(); got != "dev+unknown" {
		t.Errorf("String() = %q, want %q", got, "dev+unknown")
	}
}
