package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadURLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.txt")
	content := `# career blogs
https://example.com/a

https://example.com/b
  # commented
https://example.com/c
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	urls, err := readURLFile(path)
	if err != nil {
		t.Fatalf("readURLFile failed: %v", err)
	}

	want := []string{"https://example.com/a", "https://example.com/b", "https://example.com/c"}
	if len(urls) != len(want) {
		t.Fatalf("got %d urls, want %d: %v", len(urls), len(want), urls)
	}
	for i, u := range want {
		if urls[i] != u {
			t.Errorf("urls[%d] = %q, want %q", i, urls[i], u)
		}
	}
}

func TestReadURLFileMissing(t *testing.T) {
	if _, err := readURLFile(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Errorf("expected error for missing file")
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)

	if !strings.Contains(out.String(), "TechMentor") {
		t.Errorf("version output = %q", out.String())
	}
}
