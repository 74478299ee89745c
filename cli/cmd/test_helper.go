package cmd

import (
	"bytes"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sergi/go-diff/diffmatchpatch"
)

var (
	update = flag.Bool("update", false, "rewrite golden files with the current output")
	pretty = flag.Bool("pretty-diff", os.Getenv("OUTBOUND_POLICY_TEST_PRETTY_DIFF") != "", "show mismatches as colored text instead of a patch")
)

func TestMain(m *testing.M) {
	flag.Parse()
	os.Exit(m.Run())
}

// diffCompare fails t with a diff of want against got when they differ.
func diffCompare(t *testing.T, got, want string) {
	t.Helper()
	if got == want {
		return
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(want, got, true))
	if *pretty {
		t.Errorf("output mismatch:\n%s", dmp.DiffPrettyText(diffs))
		return
	}
	t.Errorf("output mismatch:\n%s", dmp.PatchToText(dmp.PatchMake(diffs)))
}

// diffCompareFile compares got with testdata/name, first overwriting the
// file when -update is set.
func diffCompareFile(t *testing.T, got, name string) {
	t.Helper()
	path := filepath.Join("testdata", name)
	if *update {
		if err := os.WriteFile(path, []byte(got), 0600); err != nil {
			t.Fatalf("writing %s: %s", path, err)
		}
	}
	want, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %s", path, err)
	}
	diffCompare(t, got, string(want))
}

// runCmd runs the root command with args, reading manifests given as `-f -`
// from stdin, and returns what it wrote to stdout.
func runCmd(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(strings.NewReader(stdin))
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--no-color", "--log-level", "error"}, args...))
	err := root.Execute()
	return out.String(), err
}
