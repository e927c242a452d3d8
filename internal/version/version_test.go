package version

import (
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	prev := Commit
	Commit = "abcdef1"
	defer func() { Commit = prev }()

	got := Info()
	if !strings.HasPrefix(got, "bisrt "+Version) || !strings.Contains(got, "commit: abcdef1") {
		t.Fatalf("Info() = %q", got)
	}
}
