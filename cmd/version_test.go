package cmd

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"
)

func TestVersionOutput(t *testing.T) {
	originalVersion := AppVersion
	originalBuildTime := BuildTime
	originalCommit := GitCommit
	defer func() {
		AppVersion = originalVersion
		BuildTime = originalBuildTime
		GitCommit = originalCommit
	}()

	AppVersion = "1.2.3"
	BuildTime = "2026-01-15T00:00:00Z"
	GitCommit = "abc1234"

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	originalStdout := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = originalStdout }()

	versionCmd.Run(versionCmd, nil)

	if err := w.Close(); err != nil {
		t.Fatalf("closing pipe: %v", err)
	}
	os.Stdout = originalStdout

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		t.Fatalf("reading output: %v", err)
	}
	output := buf.String()

	for _, want := range []string{
		"companyq 1.2.3",
		"Build Time: 2026-01-15T00:00:00Z",
		"Git Commit: abc1234",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}
