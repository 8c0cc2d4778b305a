package main_test

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"testing"
)

func TestGoFmt(t *testing.T) {
	if testing.Short() {
		t.Skip("short mode: skipping gofmt")
	}
	cmd := exec.Command("gofmt", "-l", "cmd", "internal", "test")
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		t.Fatalf("gofmt failed to run: %v\nOutput:\n%s", err, out.String())
	}
	if out.Len() > 0 {
		t.Errorf("gofmt found unformatted files:\n%s", out.String())
	}
}

func TestGoModTidy(t *testing.T) {
	if testing.Short() {
		t.Skip("short mode: skipping go mod tidy")
	}
	rungo(t, nil, "mod", "tidy", "-diff")
}

func TestGoVet(t *testing.T) {
	if testing.Short() {
		t.Skip("short mode: skipping go vet")
	}
	rungo(t, nil, "vet", "./...")
}

// The registry store, token elevation check and hidden-window process
// attributes only build on Windows; vet them from any host.
func TestGoVetWindows(t *testing.T) {
	if testing.Short() {
		t.Skip("short mode: skipping windows go vet")
	}
	rungo(t, []string{"GOOS=windows", "GOARCH=amd64"}, "vet", "./...")
}

func TestGoBuildWindows386(t *testing.T) {
	if testing.Short() {
		t.Skip("short mode: skipping 32-bit windows build")
	}
	rungo(t, []string{"GOOS=windows", "GOARCH=386"}, "build", "-o", os.DevNull, "./cmd/provision")
}

func rungo(t *testing.T, env []string, args ...string) {
	t.Helper()

	cmd := exec.Command("go", args...)
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}
	if output, err := cmd.CombinedOutput(); err != nil {
		if ee := (*exec.ExitError)(nil); errors.As(err, &ee) && len(ee.Stderr) > 0 {
			t.Fatalf("%v: %v\n%s", cmd, err, ee.Stderr)
		}
		t.Fatalf("%v: %v\n%s", cmd, err, output)
	}
}
