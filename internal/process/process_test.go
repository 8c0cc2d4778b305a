package process

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"
)

// TestHelperProcess is not a real test. It is re-executed by the tests
// below as a stand-in for external programs.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	if len(args) < 2 {
		os.Exit(2)
	}

	switch args[1] {
	case "echo":
		fmt.Println(strings.Join(args[2:], " "))
	case "stderr":
		fmt.Fprintln(os.Stderr, strings.Join(args[2:], " "))
	case "exit":
		code, _ := strconv.Atoi(args[2])
		fmt.Println("exiting")
		fmt.Fprintln(os.Stderr, "failure detail")
		os.Exit(code)
	case "sleep":
		time.Sleep(time.Minute)
	}
	os.Exit(0)
}

func helperArgs(args ...string) []string {
	return append([]string{"-test.run=TestHelperProcess", "--"}, args...)
}

func TestRun_CapturesOutput(t *testing.T) {
	t.Setenv("GO_WANT_HELPER_PROCESS", "1")
	r := NewRunner(0)

	res, err := r.Run(context.Background(), os.Args[0], helperArgs("echo", "v20.11.0")...)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d", res.ExitCode)
	}
	if strings.TrimSpace(res.Stdout) != "v20.11.0" {
		t.Errorf("Stdout = %q", res.Stdout)
	}
	if res.TimedOut {
		t.Error("unexpected timeout")
	}
}

func TestRun_NonZeroExit(t *testing.T) {
	t.Setenv("GO_WANT_HELPER_PROCESS", "1")
	r := NewRunner(0)

	// POSIX exit statuses are 8 bits; Windows keeps msiexec codes intact.
	want := 3
	if runtime.GOOS == "windows" {
		want = 1603
	}
	res, err := r.Run(context.Background(), os.Args[0], helperArgs("exit", strconv.Itoa(want))...)
	if err != nil {
		t.Fatalf("non-zero exit should not be an error, got %v", err)
	}
	if res.ExitCode != want {
		t.Errorf("ExitCode = %d, want %d", res.ExitCode, want)
	}
	combined := res.Combined()
	if !strings.Contains(combined, "exiting") || !strings.Contains(combined, "failure detail") {
		t.Errorf("Combined() = %q", combined)
	}
}

func TestRun_Timeout(t *testing.T) {
	t.Setenv("GO_WANT_HELPER_PROCESS", "1")
	r := NewRunner(200 * time.Millisecond)

	start := time.Now()
	res, err := r.Run(context.Background(), os.Args[0], helperArgs("sleep")...)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !res.TimedOut {
		t.Error("expected TimedOut")
	}
	if elapsed := time.Since(start); elapsed > 30*time.Second {
		t.Errorf("Run took %v, expected prompt kill", elapsed)
	}
}

func TestRun_NotFound(t *testing.T) {
	r := NewRunner(0)
	_, err := r.Run(context.Background(), "provision-no-such-command-xyz", "--version")
	if err == nil {
		t.Fatal("expected error for missing command")
	}
	if !IsNotFound(err) {
		t.Errorf("IsNotFound(%v) = false", err)
	}
}

func TestRun_MissingAbsolutePath(t *testing.T) {
	r := NewRunner(0)
	_, err := r.Run(context.Background(), t.TempDir()+string(os.PathSeparator)+"missing.exe")
	if !IsNotFound(err) {
		t.Errorf("IsNotFound(%v) = false", err)
	}
}

func TestResult_Combined(t *testing.T) {
	tests := []struct {
		res  Result
		want string
	}{
		{Result{Stdout: "out\n"}, "out\n"},
		{Result{Stderr: "err"}, "err"},
		{Result{Stdout: "out\n", Stderr: "err"}, "out\nerr"},
	}
	for _, tt := range tests {
		if got := tt.res.Combined(); got != tt.want {
			t.Errorf("Combined() = %q, want %q", got, tt.want)
		}
	}
}
